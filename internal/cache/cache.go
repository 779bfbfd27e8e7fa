// Package cache provides an optional Redis read cache for event detail
// lookups. When REDIS_ADDR is unset the cache is nil and every method is a
// no-op, so the service works identically without Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"eventhub/internal/model"
)

// EventCache caches full event representations keyed by event id.
type EventCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis at addr. An empty addr or a failed ping returns
// nil, which disables caching.
func New(ctx context.Context, addr string, ttl time.Duration, logger zerolog.Logger) *EventCache {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("redis unreachable, caching disabled")
		return nil
	}
	logger.Info().Str("addr", addr).Msg("event cache enabled")
	return &EventCache{rdb: rdb, ttl: ttl}
}

// Close releases the Redis connection.
func (c *EventCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func key(id string) string { return "event:" + id }

// Get returns the cached event, or nil on miss or any cache failure.
func (c *EventCache) Get(ctx context.Context, id string) *model.Event {
	if c == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		return nil
	}
	var e model.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil
	}
	return &e
}

// Set stores the event. Cache failures are ignored; the store remains the
// source of truth.
func (c *EventCache) Set(ctx context.Context, e *model.Event) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key(e.ID), raw, c.ttl).Err()
}

// Invalidate drops the cached entry after any mutation.
func (c *EventCache) Invalidate(ctx context.Context, id string) {
	if c == nil {
		return
	}
	_ = c.rdb.Del(ctx, key(id)).Err()
}
