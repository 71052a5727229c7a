// Package ratelimit enforces per-backend request quotas. Quota state lives
// in redis as fixed-window counters so it survives process restarts and is
// shared safely by concurrent workers; the check-and-consume step is a
// single Lua script, so admission is atomic across every window of a
// backend. An aliasing table maps logical source ids that share one
// physical backend onto a single quota instance.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/config"
)

const keyPrefix = "jobradar:rl:"

// DefaultWindows is the quota applied to any backend without an explicit
// override: a short burst window plus a sustained-rate window. A request is
// admitted only when every window has remaining capacity.
var DefaultWindows = []config.Window{
	{Limit: 30, Interval: time.Minute},
	{Limit: 300, Interval: time.Hour},
}

// DefaultAliases maps logical source ids onto the physical backend that
// serves them. The jsearch aggregator multiplexes several boards behind one
// API, so records tagged with those boards all draw from the jsearch quota.
var DefaultAliases = map[string]string{
	"linkedin":     "jsearch",
	"indeed":       "jsearch",
	"glassdoor":    "jsearch",
	"ziprecruiter": "jsearch",
}

// allowScript checks every window counter for a backend and, only if all
// have capacity, increments all of them. ARGV carries (limit, ttlSeconds)
// pairs, one per key.
var allowScript = redis.NewScript(`
for i = 1, #KEYS do
	local count = tonumber(redis.call('GET', KEYS[i]) or '0')
	if count >= tonumber(ARGV[2*i-1]) then
		return 0
	end
end
for i = 1, #KEYS do
	local count = redis.call('INCR', KEYS[i])
	if count == 1 then
		redis.call('EXPIRE', KEYS[i], ARGV[2*i])
	end
end
return 1
`)

// Registry holds the quota configuration for every backend and answers
// Allow calls from fetch workers. Construct once at startup and inject;
// there is no package-level limiter state.
type Registry struct {
	rdb      *redis.Client
	windows  map[string][]config.Window
	defaults []config.Window
	aliases  map[string]string
	paceRPS  float64
	now      func() time.Time

	mu     sync.Mutex
	pacers map[string]*rate.Limiter
}

// Option configures a Registry.
type Option func(*Registry)

// WithWindows sets per-backend window overrides (keyed by backend id).
func WithWindows(overrides map[string][]config.Window) Option {
	return func(r *Registry) {
		for backend, ws := range overrides {
			r.windows[backend] = ws
		}
	}
}

// WithDefaults replaces the default window set for unlisted backends.
func WithDefaults(ws []config.Window) Option {
	return func(r *Registry) { r.defaults = ws }
}

// WithAliases replaces the source→backend alias table.
func WithAliases(aliases map[string]string) Option {
	return func(r *Registry) { r.aliases = aliases }
}

// WithPacing sets the in-process per-backend request rate used by Wait.
// Zero disables pacing.
func WithPacing(requestsPerSecond float64) Option {
	return func(r *Registry) { r.paceRPS = requestsPerSecond }
}

// NewRegistry creates a Registry backed by rdb.
func NewRegistry(rdb *redis.Client, opts ...Option) *Registry {
	r := &Registry{
		rdb:      rdb,
		windows:  map[string][]config.Window{},
		defaults: DefaultWindows,
		aliases:  DefaultAliases,
		pacers:   map[string]*rate.Limiter{},
		paceRPS:  2,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend resolves a logical source id to its physical backend id.
func (r *Registry) Backend(sourceID string) string {
	if backend, ok := r.aliases[sourceID]; ok {
		return backend
	}
	return sourceID
}

// Allow reports whether one request to the backend serving sourceID fits
// within every configured window, consuming one unit from each window when
// it does. A false return is not an error: the caller skips the fetch.
// If the quota store is unreachable the limiter fails open — quotas protect
// politeness, not correctness.
func (r *Registry) Allow(ctx context.Context, sourceID string) bool {
	backend := r.Backend(sourceID)
	windows := r.windowsFor(backend)
	nowUnix := r.now().Unix()

	keys := make([]string, len(windows))
	argv := make([]interface{}, 0, 2*len(windows))
	for i, w := range windows {
		secs := int64(w.Interval / time.Second)
		bucket := nowUnix / secs
		keys[i] = fmt.Sprintf("%s%s:%d:%d", keyPrefix, backend, secs, bucket)
		argv = append(argv, w.Limit, secs)
	}

	allowed, err := allowScript.Run(ctx, r.rdb, keys, argv...).Int()
	if err != nil {
		log.Printf("[ratelimit] quota store error for %s: %v — failing open", backend, err)
		return true
	}
	return allowed == 1
}

// Wait blocks the calling worker until the backend's in-process pacer
// admits one more request, smoothing bursts within a run. It returns early
// with the context's error on cancellation.
func (r *Registry) Wait(ctx context.Context, sourceID string) error {
	if r.paceRPS <= 0 {
		return nil
	}
	return r.pacer(r.Backend(sourceID)).Wait(ctx)
}

func (r *Registry) windowsFor(backend string) []config.Window {
	if ws, ok := r.windows[backend]; ok {
		return ws
	}
	return r.defaults
}

func (r *Registry) pacer(backend string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pacers[backend]; ok {
		return p
	}
	p := rate.NewLimiter(rate.Limit(r.paceRPS), 1)
	r.pacers[backend] = p
	return p
}
