package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"spimex/internal/config"
	"spimex/internal/infrastructure"
)

// RedisCache keeps date lists in Redis as JSON arrays.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache creates a client for cfg.Addr. No connection is made until
// the first command.
func NewRedisCache(cfg config.CacheConfig, logger *slog.Logger) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), logger)
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: infrastructure.WithComponent(logger, "redis_cache"),
	}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	dates, err := decodeDates(payload)
	if err != nil {
		return nil, false, err
	}
	return dates, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, dates []string, ttl time.Duration) error {
	payload, err := encodeDates(dates)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// FlushAll implements Cache with FLUSHDB on the configured database.
func (c *RedisCache) FlushAll(ctx context.Context) error {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("redis flushdb: %w", err)
	}
	c.logger.InfoContext(ctx, "cache flushed")
	return nil
}

// Ping implements Cache.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
