package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"spimex/internal/config"
)

// Cache stores date lists under string keys.
type Cache interface {
	// Get returns the dates stored under key. A missing or expired key
	// yields (nil, false, nil).
	Get(ctx context.Context, key string) ([]string, bool, error)
	// Set stores dates under key for ttl.
	Set(ctx context.Context, key string, dates []string, ttl time.Duration) error
	// FlushAll drops every key.
	FlushAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// New opens the cache selected by cfg.Driver.
func New(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (Cache, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryCache(time.Minute), nil
	case config.DriverRedis:
		c := NewRedisCache(cfg, logger)
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
}

func encodeDates(dates []string) ([]byte, error) {
	if dates == nil {
		dates = []string{}
	}
	return json.Marshal(dates)
}

func decodeDates(payload []byte) ([]string, error) {
	var dates []string
	if err := json.Unmarshal(payload, &dates); err != nil {
		return nil, fmt.Errorf("decode cached dates: %w", err)
	}
	return dates, nil
}
