package main

import (
	"context"
	"testing"
	"time"
)

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkuID = "original"
	cfg.Num = 1
	cfg.WorkCount = 4
	cfg.BuyTime = "09:59:59"

	applyOverrides(cfg, "override-sku", 3, 8, "21:00:00")
	if cfg.SkuID != "override-sku" || cfg.Num != 3 || cfg.WorkCount != 8 || cfg.BuyTime != "21:00:00" {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	applyOverrides(cfg, "", 0, 0, "")
	if cfg.SkuID != "override-sku" || cfg.Num != 3 || cfg.WorkCount != 8 || cfg.BuyTime != "21:00:00" {
		t.Errorf("empty overrides must leave values alone: %+v", cfg)
	}
}

func TestWaitUntil(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	// Target already reached.
	clock := newFakeClock(start, 0)
	if !waitUntil(context.Background(), clock, start.Add(-time.Second)) {
		t.Error("waitUntil should return immediately for a past target")
	}

	// Target a few steps ahead of the advancing clock.
	clock = newFakeClock(start, 50*time.Millisecond)
	done := make(chan bool, 1)
	go func() {
		done <- waitUntil(context.Background(), clock, start.Add(200*time.Millisecond))
	}()
	select {
	case ok := <-done:
		if !ok {
			t.Error("waitUntil reported cancellation without one")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waitUntil did not return")
	}

	// Cancellation wins over a far-future target.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clock = newFakeClock(start, 0)
	if waitUntil(ctx, clock, start.Add(time.Hour)) {
		t.Error("waitUntil must report cancellation")
	}
}
