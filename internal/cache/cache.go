// Package cache keeps short-lived copies of ticket lookups and dashboard
// counts in Redis. Every method degrades to a miss when Redis is disabled or
// unreachable; the stores stay the source of truth.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/codec"
)

const keyPrefix = "support:"

// StatsKey holds the dashboard counters.
const StatsKey = keyPrefix + "stats"

// TicketRefKey is the key of the cached public lookup for a reference id.
func TicketRefKey(referenceID string) string {
	return keyPrefix + "ticket:ref:" + referenceID
}

// Cache stores CBOR-encoded values in Redis.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New wraps client. A nil client yields a cache that never hits.
func New(client *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the value at key into dst and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := codec.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache entry undecodable; dropping", zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		return false
	}
	return true
}

// Set stores value at key for ttl. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.Enabled() || ttl <= 0 {
		return
	}
	raw, err := codec.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
