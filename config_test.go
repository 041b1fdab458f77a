package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Num != 1 || cfg.WorkCount != 4 {
		t.Errorf("unexpected defaults: num=%d work_count=%d", cfg.Num, cfg.WorkCount)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file was not written: %v", err)
	}

	// Second load reads the file back.
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.RetryDelayMinMs != cfg.RetryDelayMinMs {
		t.Errorf("reload mismatch: %d vs %d", again.RetryDelayMinMs, cfg.RetryDelayMinMs)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.SkuID = "100012043978"
	cfg.BuyTime = "09:59:59.500"
	cfg.WorkCount = 7
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.SkuID != "100012043978" || loaded.BuyTime != "09:59:59.500" || loaded.WorkCount != 7 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.SkuID = "123"
		c.BuyTime = "09:59:59"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing sku", func(c *Config) { c.SkuID = "" }, true},
		{"zero num", func(c *Config) { c.Num = 0 }, true},
		{"missing buy time", func(c *Config) { c.BuyTime = "" }, true},
		{"zero workers", func(c *Config) { c.WorkCount = 0 }, true},
		{"inverted delay range", func(c *Config) { c.RetryDelayMinMs = 500; c.RetryDelayMaxMs = 100 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryDelayRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryDelayMinMs = 100
	cfg.RetryDelayMaxMs = 300

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d := cfg.RetryDelay(r)
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("delay %v outside configured range", d)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MARATHON_PAYMENT_PWD", "123456")
	t.Setenv("MARATHON_PUSH_KEY", "SCT_KEY")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PaymentPassword != "123456" {
		t.Errorf("payment password not taken from env")
	}
	if cfg.PushKey != "SCT_KEY" {
		t.Errorf("push key not taken from env")
	}
}
