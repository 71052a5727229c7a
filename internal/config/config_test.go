package config_test

import (
	"testing"
	"time"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/config"
)

func TestLoad_RequiresRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	if _, err := config.Load(); err == nil {
		t.Error("Load() without REDIS_URL should fail")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CacheTTL != 6*time.Hour {
		t.Errorf("CacheTTL = %v, want 6h", cfg.CacheTTL)
	}
	if cfg.DedupThreshold != 0.85 {
		t.Errorf("DedupThreshold = %v, want 0.85", cfg.DedupThreshold)
	}
	if cfg.PhaseWorkers != 4 {
		t.Errorf("PhaseWorkers = %d, want 4", cfg.PhaseWorkers)
	}
	if cfg.FetchMaxAttempts != 3 {
		t.Errorf("FetchMaxAttempts = %d, want 3", cfg.FetchMaxAttempts)
	}
}

func TestLoad_RateWindowOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATE_WINDOWS_JSEARCH", "100/60,500/3600")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	windows, ok := cfg.RateWindows["jsearch"]
	if !ok {
		t.Fatal("expected an override for backend jsearch")
	}
	if len(windows) != 2 {
		t.Fatalf("windows = %d, want 2", len(windows))
	}
	if windows[0].Limit != 100 || windows[0].Interval != time.Minute {
		t.Errorf("windows[0] = %+v, want 100/minute", windows[0])
	}
	if windows[1].Limit != 500 || windows[1].Interval != time.Hour {
		t.Errorf("windows[1] = %+v, want 500/hour", windows[1])
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct{ name, value string }{
		{"DEDUP_THRESHOLD", "1.5"},
		{"FETCH_MAX_ATTEMPTS", "zero"},
		{"PHASE_WORKERS", "-1"},
		{"SCRAPE_INTERVAL_HOURS", "0"},
		{"RATE_WINDOWS_X", "banana"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Setenv("REDIS_URL", "redis://localhost:6379/0")
			t.Setenv(c.name, c.value)
			if _, err := config.Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", c.name, c.value)
			}
		})
	}
}

func TestParseWindows_Errors(t *testing.T) {
	for _, s := range []string{"", "10", "0/60", "10/0", "a/b"} {
		if _, err := config.ParseWindows(s); err == nil {
			t.Errorf("ParseWindows(%q) should fail", s)
		}
	}
}
