// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Window is one rate-limit counting window: Limit requests per Interval.
type Window struct {
	Limit    int
	Interval time.Duration
}

// Config holds all runtime configuration for the aggregation service.
type Config struct {
	Port        string
	RedisURL    string
	DatabaseURL string // optional — feed persistence is skipped when empty

	// Per-backend credentials. An adapter whose credentials are empty
	// returns no results without attempting a fetch.
	AdzunaAppID    string
	AdzunaAppKey   string
	AdzunaCountry  string // e.g. "fr", "gb", "us"
	USAJobsAPIKey  string
	USAJobsEmail   string // sent as User-Agent, per the USAJOBS API terms
	JSearchAPIKey  string

	CacheTTL            time.Duration
	FetchMaxAttempts    int
	PhaseWorkers        int
	DedupThreshold      float64 // fuzzy identity match threshold, 0..1
	ScrapeIntervalHours int     // daemon mode: how often the cron job fires
	Debug               bool

	// RateWindows holds per-backend window overrides parsed from
	// RATE_WINDOWS_<BACKEND> variables ("limit/seconds[,limit/seconds]").
	// Backends without an override use the limiter's defaults.
	RateWindows map[string][]Window
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg := &Config{
		Port:                envOr("PORT", "8082"),
		RedisURL:            redisURL,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		AdzunaAppID:         os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:        os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:       envOr("ADZUNA_COUNTRY", "us"),
		USAJobsAPIKey:       os.Getenv("USAJOBS_API_KEY"),
		USAJobsEmail:        os.Getenv("USAJOBS_EMAIL"),
		JSearchAPIKey:       os.Getenv("JSEARCH_API_KEY"),
		CacheTTL:            6 * time.Hour,
		FetchMaxAttempts:    3,
		PhaseWorkers:        4,
		DedupThreshold:      0.85,
		ScrapeIntervalHours: 6,
		Debug:               os.Getenv("LOG_DEBUG") == "1",
		RateWindows:         map[string][]Window{},
	}

	if s := os.Getenv("CACHE_TTL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("CACHE_TTL_HOURS must be a positive integer, got %q", s)
		}
		cfg.CacheTTL = time.Duration(v) * time.Hour
	}

	if s := os.Getenv("FETCH_MAX_ATTEMPTS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("FETCH_MAX_ATTEMPTS must be a positive integer, got %q", s)
		}
		cfg.FetchMaxAttempts = v
	}

	if s := os.Getenv("PHASE_WORKERS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("PHASE_WORKERS must be a positive integer, got %q", s)
		}
		cfg.PhaseWorkers = v
	}

	if s := os.Getenv("DEDUP_THRESHOLD"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v > 1 {
			return nil, fmt.Errorf("DEDUP_THRESHOLD must be in (0, 1], got %q", s)
		}
		cfg.DedupThreshold = v
	}

	if s := os.Getenv("SCRAPE_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SCRAPE_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		cfg.ScrapeIntervalHours = v
	}

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "RATE_WINDOWS_") {
			continue
		}
		backend := strings.ToLower(strings.TrimPrefix(name, "RATE_WINDOWS_"))
		windows, err := ParseWindows(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cfg.RateWindows[backend] = windows
	}

	return cfg, nil
}

// ParseWindows parses a window-list string like "100/60,500/3600"
// (limit per seconds, comma-separated).
func ParseWindows(s string) ([]Window, error) {
	var windows []Window
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		limitStr, secsStr, ok := strings.Cut(part, "/")
		if !ok {
			return nil, fmt.Errorf("window %q: want limit/seconds", part)
		}
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("window %q: limit must be a positive integer", part)
		}
		secs, err := strconv.Atoi(secsStr)
		if err != nil || secs < 1 {
			return nil, fmt.Errorf("window %q: seconds must be a positive integer", part)
		}
		windows = append(windows, Window{Limit: limit, Interval: time.Duration(secs) * time.Second})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("empty window list")
	}
	return windows, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
