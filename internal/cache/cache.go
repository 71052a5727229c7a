// Package cache implements the response cache: a redis-backed map from a
// request fingerprint to a recently fetched body. Entries expire after a
// configurable TTL; a broken store always degrades to a cache miss.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jobradar:cache:"

// Cache stores raw response bodies keyed by request fingerprint.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a Cache with the given entry TTL.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached body for fingerprint, or (nil, false) on a miss.
// Store errors are logged and treated as misses; they never abort a fetch.
func (c *Cache) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	body, err := c.rdb.Get(ctx, keyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[cache] Get %s: %v — treating as miss", fingerprint, err)
		return nil, false
	}
	return body, true
}

// Put stores body under fingerprint with the configured TTL. Called only
// after a successful fetch; failures are logged and ignored.
func (c *Cache) Put(ctx context.Context, fingerprint string, body []byte) {
	if err := c.rdb.Set(ctx, keyPrefix+fingerprint, body, c.ttl).Err(); err != nil {
		log.Printf("[cache] Put %s: %v", fingerprint, err)
	}
}

// Fingerprint derives a stable cache key from a normalized request:
// method + host + path + sorted query parameters. Two requests that differ
// only in query-parameter order share a fingerprint.
func Fingerprint(method, rawURL string) string {
	normalized := method + " " + rawURL

	if u, err := url.Parse(rawURL); err == nil {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString(method)
		b.WriteByte(' ')
		b.WriteString(u.Host)
		b.WriteString(u.Path)
		for _, k := range keys {
			vs := params[k]
			sort.Strings(vs)
			for _, v := range vs {
				b.WriteByte('&')
				b.WriteString(k)
				b.WriteByte('=')
				b.WriteString(v)
			}
		}
		normalized = b.String()
	}

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
