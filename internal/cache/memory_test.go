package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newMemoryCache(t *testing.T) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(0)
	c.now = clock.Now
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestMemoryCacheGetSet(t *testing.T) {
	c, clock := newMemoryCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	dates := []string{"2023-06-01"}
	require.NoError(t, c.Set(ctx, "k", dates, time.Minute))
	dates[0] = "mutated"

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"2023-06-01"}, got)

	clock.Advance(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires at ttl")
}

func TestMemoryCacheSweepAndFlush(t *testing.T) {
	c, clock := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []string{"a"}, time.Second))
	require.NoError(t, c.Set(ctx, "long", []string{"b"}, time.Hour))

	clock.Advance(2 * time.Second)
	c.sweep()
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.FlushAll(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestMemoryCacheCancelledContext(t *testing.T) {
	c, _ := newMemoryCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Second), context.Canceled)
	assert.ErrorIs(t, c.Ping(ctx), context.Canceled)
}
