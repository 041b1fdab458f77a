package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SkuID string `yaml:"sku_id"`
	Num   int    `yaml:"num"`

	// BuyTime is the configured purchase-window start, either a full
	// timestamp ("2026-01-01 09:59:59.500") or a clock time for today
	// ("09:59:59.500").
	BuyTime         string `yaml:"buy_time"`
	ContinueMinutes int    `yaml:"continue_minutes"`

	WorkCount       int `yaml:"work_count"`
	WorkerStaggerMs int `yaml:"worker_stagger_ms"`

	PaymentPassword string `yaml:"payment_password"`

	// Static anti-bot token fallbacks, used when automatic acquisition is
	// disabled or fails.
	Eid                       string `yaml:"eid"`
	Fp                        string `yaml:"fp"`
	AutoFingerprint           bool   `yaml:"auto_fingerprint"`
	FingerprintTimeoutSeconds int    `yaml:"fingerprint_timeout_seconds"`
	BrowserProfilePath        string `yaml:"browser_profile_path"`

	RetryDelayMinMs   int `yaml:"retry_delay_min_ms"`
	RetryDelayMaxMs   int `yaml:"retry_delay_max_ms"`
	RouteRetryDelayMs int `yaml:"route_retry_delay_ms"`

	PushKey string `yaml:"push_key"`

	CredentialsDir string `yaml:"credentials_dir"`
	QRImagePath    string `yaml:"qr_image_path"`
}

func DefaultConfig() *Config {
	return &Config{
		Num:                       1,
		ContinueMinutes:           15,
		WorkCount:                 4,
		WorkerStaggerMs:           50,
		AutoFingerprint:           true,
		FingerprintTimeoutSeconds: 30,
		BrowserProfilePath:        ".browser-profile",
		RetryDelayMinMs:           100,
		RetryDelayMaxMs:           10000,
		RouteRetryDelayMs:         300,
		CredentialsDir:            "credentials",
		QRImagePath:               "qr_code.png",
	}
}

// LoadConfig reads the YAML config at path, writing the defaults out first if
// the file does not exist yet. Secrets may be overridden via environment
// variables after godotenv has loaded .env.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
		config.applyEnv()
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MARATHON_PAYMENT_PWD"); v != "" {
		c.PaymentPassword = v
	}
	if v := os.Getenv("MARATHON_PUSH_KEY"); v != "" {
		c.PushKey = v
	}
}

// Validate checks the fields the purchase flow cannot run without.
func (c *Config) Validate() error {
	if c.SkuID == "" {
		return fmt.Errorf("config: sku_id is required")
	}
	if c.Num <= 0 {
		return fmt.Errorf("config: num must be positive")
	}
	if c.BuyTime == "" {
		return fmt.Errorf("config: buy_time is required")
	}
	if c.WorkCount <= 0 {
		return fmt.Errorf("config: work_count must be positive")
	}
	if c.RetryDelayMinMs <= 0 || c.RetryDelayMaxMs < c.RetryDelayMinMs {
		return fmt.Errorf("config: retry delay range %d..%dms is invalid", c.RetryDelayMinMs, c.RetryDelayMaxMs)
	}
	return nil
}

func (c *Config) ContinueDuration() time.Duration {
	return time.Duration(c.ContinueMinutes) * time.Minute
}

func (c *Config) FingerprintTimeout() time.Duration {
	return time.Duration(c.FingerprintTimeoutSeconds) * time.Second
}

func (c *Config) WorkerStagger() time.Duration {
	return time.Duration(c.WorkerStaggerMs) * time.Millisecond
}

// RetryDelay draws a uniformly distributed inter-attempt delay. Besides
// throttling the request rate it desynchronizes concurrent workers.
func (c *Config) RetryDelay(r *rand.Rand) time.Duration {
	spread := c.RetryDelayMaxMs - c.RetryDelayMinMs + 1
	return time.Duration(c.RetryDelayMinMs+r.Intn(spread)) * time.Millisecond
}

func (c *Config) RouteRetryDelay() time.Duration {
	return time.Duration(c.RouteRetryDelayMs) * time.Millisecond
}

// StaticFingerprint returns the configured fallback token pair.
func (c *Config) StaticFingerprint() FingerprintToken {
	return FingerprintToken{DeviceID: c.Eid, Fingerprint: c.Fp}
}
