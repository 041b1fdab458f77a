package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

var engineLog *log.Logger

type moduleLogger struct {
	logger *log.Logger
}

func (m *moduleLogger) Log(format string, args ...any) {
	m.logger.Printf("      "+format, args...)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "buy", "what to run: login, reserve or buy")
	sku := flag.String("sku", "", "override the configured SKU")
	num := flag.Int("num", 0, "override the configured quantity")
	works := flag.Int("works", 0, "override the configured worker count")
	buyTime := flag.String("time", "", "override the configured buy time")
	flag.Parse()

	logFile, modLog := setupLogging()
	defer logFile.Close()

	_ = godotenv.Load()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		engineLog.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, *sku, *num, *works, *buyTime)
	if err := cfg.Validate(); err != nil {
		engineLog.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, modLog, *mode))
}

func applyOverrides(cfg *Config, sku string, num, works int, buyTime string) {
	if sku != "" {
		cfg.SkuID = sku
	}
	if num > 0 {
		cfg.Num = num
	}
	if works > 0 {
		cfg.WorkCount = works
	}
	if buyTime != "" {
		cfg.BuyTime = buyTime
	}
}

func setupLogging() (logFile *os.File, modLog Logger) {
	f, err := os.OpenFile("marathon.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	engineLog = log.New(io.MultiWriter(os.Stdout, f), "", log.LstdFlags)
	return f, &moduleLogger{logger: engineLog}
}

func run(ctx context.Context, cfg *Config, logger Logger, mode string) int {
	session, err := NewSession(logger, DefaultEndpoints())
	if err != nil {
		engineLog.Printf("Failed to create session: %v", err)
		return 1
	}

	store := NewFileCredentialStore(cfg.CredentialsDir)
	notifier := NewNotifier(cfg, logger)

	clock := NewServerClock(session.endpoints.TimeSync + "/ajax/queryServerData.html")
	if err := clock.Sync(ctx); err != nil {
		engineLog.Printf("Time sync failed, using local clock: %v", err)
	} else {
		engineLog.Printf("Clock synced, offset %v", clock.Offset())
	}

	var provider FingerprintProvider
	if cfg.AutoFingerprint {
		provider = NewBrowserFingerprintProvider(logger, cfg.SkuID, cfg.BrowserProfilePath, true)
	} else {
		provider = StaticFingerprintProvider{Token: cfg.StaticFingerprint()}
	}

	coord := NewCoordinator(cfg, session, store, notifier, provider, clock, logger)

	if err := coord.EnsureAuthenticated(ctx); err != nil {
		engineLog.Printf("Authentication failed: %v", err)
		return 1
	}
	engineLog.Printf("Authenticated as %s", session.Nickname())

	switch mode {
	case "login":
		return 0
	case "reserve":
		return runReserve(ctx, cfg, session, notifier, logger)
	case "buy":
		return runBuy(ctx, cfg, coord, clock)
	default:
		engineLog.Printf("Unknown mode %q", mode)
		return 2
	}
}

func runReserve(ctx context.Context, cfg *Config, session *Session, notifier Notifier, logger Logger) int {
	reserver := NewReserveClient(session, notifier, logger, cfg.SkuID)
	if err := reserver.Reserve(ctx); err != nil {
		engineLog.Printf("Reservation failed: %v", err)
		return 1
	}
	return 0
}

func runBuy(ctx context.Context, cfg *Config, coord *Coordinator, clock *ServerClock) int {
	buyAt, err := ParseBuyTime(cfg.BuyTime, clock.Now())
	if err != nil {
		engineLog.Printf("Invalid buy time: %v", err)
		return 2
	}
	deadline := buyAt.Add(cfg.ContinueDuration())

	engineLog.Printf("Buy time %s, deadline %s, %d worker(s)",
		buyAt.Format("15:04:05.000"), deadline.Format("15:04:05.000"), cfg.WorkCount)

	// Warm up the fingerprint before the window opens.
	coord.EnsureFingerprint(ctx)

	if !waitUntil(ctx, clock, buyAt) {
		engineLog.Printf("Interrupted while waiting for the buy window")
		return 1
	}

	results, err := coord.RunWorkerPool(ctx, cfg.WorkCount, deadline)
	if err != nil {
		engineLog.Printf("Worker pool failed: %v", err)
		return 1
	}

	won := false
	for _, r := range results {
		engineLog.Printf("[%s] %s", r.WorkerID, r.State)
		if r.State == StateWon {
			won = true
		}
	}
	if won {
		engineLog.Printf("=== Order placed ===")
		return 0
	}
	engineLog.Printf("=== No order placed ===")
	return 1
}

// waitUntil sleeps until the shared clock reaches target, re-checking every
// 100ms so a drifting offset correction still lands on time. Reports false
// when ctx was cancelled first.
func waitUntil(ctx context.Context, clock Clock, target time.Time) bool {
	for {
		left := target.Sub(clock.Now())
		if left <= 0 {
			return true
		}
		if left > 100*time.Millisecond {
			left = 100 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(left):
		}
	}
}
