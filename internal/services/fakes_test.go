package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"spimex/internal/cache"
	"spimex/internal/dataprocessing"
	"spimex/internal/storage"
	"spimex/pkg/contracts/domain"
)

// countingRepo wraps a MemoryRepository and counts storage calls.
type countingRepo struct {
	*storage.MemoryRepository

	mu        sync.Mutex
	listCalls int
	inserts   int
	failCalls map[int]error
	listErr   error
}

func newCountingRepo() *countingRepo {
	return &countingRepo{MemoryRepository: storage.NewMemoryRepository()}
}

func (r *countingRepo) ListDistinctTradingDates(ctx context.Context, limit int) ([]time.Time, error) {
	r.mu.Lock()
	r.listCalls++
	err := r.listErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.MemoryRepository.ListDistinctTradingDates(ctx, limit)
}

func (r *countingRepo) InsertBatch(ctx context.Context, records []domain.TradeRecord) error {
	r.mu.Lock()
	n := r.inserts
	r.inserts++
	err := r.failCalls[n]
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryRepository.InsertBatch(ctx, records)
}

func (r *countingRepo) ListCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

// brokenCache fails every operation.
type brokenCache struct{ sets int }

var errCacheDown = errors.New("cache unavailable")

func (c *brokenCache) Get(context.Context, string) ([]string, bool, error) {
	return nil, false, errCacheDown
}
func (c *brokenCache) Set(context.Context, string, []string, time.Duration) error {
	c.sets++
	return errCacheDown
}
func (c *brokenCache) FlushAll(context.Context) error { return errCacheDown }
func (c *brokenCache) Ping(context.Context) error     { return errCacheDown }
func (c *brokenCache) Close() error                   { return nil }

var _ cache.Cache = (*brokenCache)(nil)

type stubFetcher struct {
	paths []string
	err   error
}

func (f stubFetcher) FetchAll(context.Context) ([]string, error) { return f.paths, f.err }

type stubParser struct {
	batches []dataprocessing.Batch
	err     error
	got     []string
}

func (p *stubParser) ParseAll(_ context.Context, paths []string) ([]dataprocessing.Batch, error) {
	p.got = paths
	return p.batches, p.err
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
