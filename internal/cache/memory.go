package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	dates     []string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with per-key expiry.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	now      func() time.Time
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryCache creates a cache that sweeps expired keys every interval.
// A non-positive interval disables the sweeper; expired keys are still
// never returned.
func NewMemoryCache(interval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries:  make(map[string]memoryEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if interval > 0 {
		go c.cleanup(interval)
	}
	return c
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return slices.Clone(entry.dates), true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(ctx context.Context, key string, dates []string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dates == nil {
		dates = []string{}
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{dates: slices.Clone(dates), expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// FlushAll implements Cache.
func (c *MemoryCache) FlushAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}

// Ping implements Cache.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close stops the sweeper. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopChan) })
	return nil
}

// Len returns the number of stored keys, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopChan:
			return
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
