// Package idempotency replays a previously recorded response body for a
// repeated request carrying the same Idempotency-Key. The remote tier is a
// Redis key-value store (ground on the teacher's pkg/discovery/redis.go use
// of go-redis/v8); when no REDIS_URL is configured, or the remote call
// fails, an in-process map takes over with no eviction, matching the
// spec's "fall through to a fresh execution, never surface the error"
// contract.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/hermes/internal/corelog"
)

// Cache replays recorded response bodies keyed by an idempotency key.
type Cache struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      corelog.Logger

	mu    sync.Mutex
	local map[string][]byte
}

// New builds a Cache. redisURL may be empty, in which case only the
// in-process fallback tier is used.
func New(redisURL string, ttl time.Duration, logger corelog.Logger) *Cache {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	c := &Cache{ttl: ttl, logger: logger, local: make(map[string][]byte)}
	if redisURL == "" {
		return c
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("idempotency_redis_url_invalid", map[string]interface{}{"error": err.Error()})
		return c
	}
	c.redisClient = redis.NewClient(opts)
	return c
}

// Get returns the previously stored body for key, if any. Any remote
// failure (network error, parse error) is logged and the lookup falls back
// to the in-process tier; a miss there sends the caller to a fresh pipeline
// run.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}
	if c.redisClient != nil {
		value, err := c.redisClient.Get(ctx, redisKey(key)).Bytes()
		switch {
		case err == nil:
			return value, true
		case err == redis.Nil:
			return nil, false
		default:
			c.logger.Warn("idempotency_redis_get_failed", map[string]interface{}{"error": err.Error()})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.local[key]
	return value, ok
}

// Put records body under key with the cache's configured TTL. Remote write
// failures are logged and otherwise ignored; the in-process tier is always
// written so a same-process replay still succeeds.
func (c *Cache) Put(ctx context.Context, key string, body []byte) {
	if key == "" {
		return
	}
	c.mu.Lock()
	c.local[key] = append([]byte(nil), body...)
	c.mu.Unlock()

	if c.redisClient != nil {
		if err := c.redisClient.Set(ctx, redisKey(key), body, c.ttl).Err(); err != nil {
			c.logger.Warn("idempotency_redis_set_failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func redisKey(key string) string {
	return "hermes:idempotency:" + key
}
