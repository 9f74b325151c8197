package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spimex/internal/shared/testutil"
)

func TestNextFlush(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before flush time", time.Date(2023, 6, 1, 9, 0, 0, 0, msk), time.Date(2023, 6, 1, 14, 11, 0, 0, msk)},
		{"exactly at flush time", time.Date(2023, 6, 1, 14, 11, 0, 0, msk), time.Date(2023, 6, 2, 14, 11, 0, 0, msk)},
		{"after flush time", time.Date(2023, 6, 1, 14, 11, 1, 0, msk), time.Date(2023, 6, 2, 14, 11, 0, 0, msk)},
		{"month rollover", time.Date(2023, 6, 30, 23, 0, 0, 0, msk), time.Date(2023, 7, 1, 14, 11, 0, 0, msk)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextFlush(tt.now, 14, 11))
		})
	}
}

type countingCache struct {
	MemoryCache
	flushes atomic.Int32
	failOn  int32
	onFlush func(n int32)
}

func (c *countingCache) FlushAll(ctx context.Context) error {
	n := c.flushes.Add(1)
	if c.onFlush != nil {
		c.onFlush(n)
	}
	if n == c.failOn {
		return errors.New("flush failed")
	}
	return nil
}

func TestSchedulerRunFlushesUntilCancelled(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &countingCache{failOn: 1}
	c.onFlush = func(n int32) {
		if n == 3 {
			cancel()
		}
	}

	s := NewScheduler(c, 14, 11, logger, nil)
	var waits []time.Duration
	s.now = func() time.Time { return time.Date(2023, 6, 1, 14, 0, 0, 0, time.UTC) }
	s.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		if ctx.Err() != nil {
			return nil
		}
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), c.flushes.Load(), "a failed flush does not stop the loop")
	require.NotEmpty(t, waits)
	assert.Equal(t, 11*time.Minute, waits[0])
	testutil.AssertLogContains(t, handler, slog.LevelError, "scheduled cache flush failed")
	for _, rec := range handler.GetRecordsByLevel(slog.LevelError) {
		assert.Equal(t, "cache_scheduler", rec.Attrs["component"])
	}
}

func TestSchedulerRunStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(NewMemoryCache(0), 14, 11, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
