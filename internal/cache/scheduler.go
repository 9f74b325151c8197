package cache

import (
	"context"
	"log/slog"
	"time"

	"spimex/internal/infrastructure"
)

// NextFlush returns the first hour:minute:00 strictly after now, in now's
// location.
func NextFlush(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Scheduler flushes a cache once a day at a fixed local time.
type Scheduler struct {
	cache   Cache
	hour    int
	minute  int
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewScheduler creates a daily flush at hour:minute.
func NewScheduler(c Cache, hour, minute int, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Scheduler {
	return &Scheduler{
		cache:   c,
		hour:    hour,
		minute:  minute,
		now:     time.Now,
		after:   time.After,
		logger:  infrastructure.WithComponent(logger, "cache_scheduler"),
		metrics: metrics,
	}
}

// Run blocks until ctx is done, flushing the cache at each scheduled time.
// Flush failures are logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := NextFlush(s.now(), s.hour, s.minute)
		s.logger.DebugContext(ctx, "next cache flush scheduled", slog.Time("at", next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(s.now())):
		}

		s.flush(ctx)
	}
}

func (s *Scheduler) flush(ctx context.Context) {
	err := s.cache.FlushAll(ctx)
	s.metrics.RecordCacheFlush(ctx, err == nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled cache flush failed", slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "scheduled cache flush completed")
}
