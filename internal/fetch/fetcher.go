// Package fetch performs one logical HTTP request on behalf of a source
// adapter: cache lookup, quota check, the network call with bounded
// exponential backoff on transient failures, and the cache write on
// success. Failures come back as reason values, never as panics, so the
// orchestrator can see why a source yielded nothing.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/cache"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/ratelimit"
)

// FailureReason classifies the outcome of a fetch.
type FailureReason int

const (
	// OK — body fetched (or served from cache).
	OK FailureReason = iota
	// RateLimited — the quota denied the request; no network I/O happened.
	RateLimited
	// AuthFailed — the backend rejected our credentials (401/403); never
	// retried so the caller can surface a clear reconfiguration signal.
	AuthFailed
	// NetworkFailed — retries exhausted on a transient failure, or the
	// backend returned a non-retryable error status.
	NetworkFailed
)

func (r FailureReason) String() string {
	switch r {
	case OK:
		return "ok"
	case RateLimited:
		return "rate-limited"
	case AuthFailed:
		return "auth-failed"
	case NetworkFailed:
		return "network-failed"
	default:
		return "unknown"
	}
}

// Request describes one logical request to a backend.
type Request struct {
	SourceID string
	Method   string
	URL      string
	Header   http.Header
}

// Result is the outcome of Fetcher.Do.
type Result struct {
	Body     []byte
	Reason   FailureReason
	Attempts int
	Cached   bool
	Err      error // detail for logging; nil when Reason is OK
}

const (
	defaultTimeout     = 15 * time.Second
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 8 * time.Second
	defaultMaxAttempts = 3
)

// Fetcher executes requests through the response cache and rate limiter.
type Fetcher struct {
	client      *http.Client
	cache       *cache.Cache
	limits      *ratelimit.Registry
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	debug       bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxAttempts bounds the retry loop (attempts, not retries).
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n >= 1 {
			f.maxAttempts = n
		}
	}
}

// WithBackoff sets the base and cap of the exponential backoff delay.
func WithBackoff(base, max time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = base
		f.maxDelay = max
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithDebug enables debug-level logging (cache hits, quota denials).
func WithDebug(debug bool) Option {
	return func(f *Fetcher) { f.debug = debug }
}

// New constructs a Fetcher sharing one HTTP client across all sources.
func New(c *cache.Cache, limits *ratelimit.Registry, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: defaultTimeout},
		cache:       c,
		limits:      limits,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Do performs one logical request. Order matters: a cache hit costs nothing
// and bypasses the quota; a quota denial costs nothing and bypasses the
// network; only then is the request actually attempted.
func (f *Fetcher) Do(ctx context.Context, req Request) Result {
	fingerprint := cache.Fingerprint(req.Method, req.URL)

	if body, ok := f.cache.Get(ctx, fingerprint); ok {
		f.debugf("[fetch] %s: cache hit", req.SourceID)
		return Result{Body: body, Reason: OK, Cached: true}
	}

	if !f.limits.Allow(ctx, req.SourceID) {
		f.debugf("[fetch] %s: rate limited — skipping request", req.SourceID)
		return Result{Reason: RateLimited, Err: fmt.Errorf("quota exhausted for %s", req.SourceID)}
	}

	if err := f.limits.Wait(ctx, req.SourceID); err != nil {
		return Result{Reason: NetworkFailed, Err: fmt.Errorf("pacing wait: %w", err)}
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		body, status, err := f.attempt(ctx, req)

		switch {
		case err == nil && status >= 200 && status < 300:
			f.cache.Put(ctx, fingerprint, body)
			return Result{Body: body, Reason: OK, Attempts: attempt}

		case err == nil && (status == http.StatusUnauthorized || status == http.StatusForbidden):
			return Result{
				Reason:   AuthFailed,
				Attempts: attempt,
				Err:      fmt.Errorf("%s returned %d", req.SourceID, status),
			}

		case err == nil && status >= 400 && status < 500 && status != http.StatusTooManyRequests:
			// Client error other than 429: retrying cannot help.
			return Result{
				Reason:   NetworkFailed,
				Attempts: attempt,
				Err:      fmt.Errorf("%s returned %d", req.SourceID, status),
			}

		case err != nil:
			lastErr = err
		default:
			lastErr = fmt.Errorf("%s returned %d", req.SourceID, status)
		}

		if attempt < f.maxAttempts {
			delay := f.backoff(attempt)
			f.debugf("[fetch] %s: attempt %d failed (%v) — retrying in %s", req.SourceID, attempt, lastErr, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Result{Reason: NetworkFailed, Attempts: attempt, Err: ctx.Err()}
			}
		}
	}

	return Result{
		Reason:   NetworkFailed,
		Attempts: f.maxAttempts,
		Err:      fmt.Errorf("retries exhausted: %w", lastErr),
	}
}

func (f *Fetcher) attempt(ctx context.Context, req Request) (body []byte, status int, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("http %s: %w", req.Method, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// backoff returns the delay before the next attempt: base doubled per
// attempt, capped, with up to 25% jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.baseDelay << (attempt - 1)
	if delay > f.maxDelay {
		delay = f.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

func (f *Fetcher) debugf(format string, args ...interface{}) {
	if f.debug {
		log.Printf(format, args...)
	}
}
