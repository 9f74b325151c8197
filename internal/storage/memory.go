package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spimex/pkg/contracts/domain"
)

// MemoryRepository keeps trade records in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []domain.TradeRecord
	nextID  int64
	now     func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, now: time.Now}
}

// InsertBatch implements Repository.
func (m *MemoryRepository) InsertBatch(ctx context.Context, records []domain.TradeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, rec := range records {
		if rec.Count < 0 {
			return fmt.Errorf("record %d: %w", i, ErrNegativeCount)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	today := domain.TradingDay(m.now())
	for _, rec := range records {
		rec.ID = m.nextID
		m.nextID++
		rec.Date = domain.TradingDay(rec.Date)
		rec.CreatedOn = today
		rec.UpdatedOn = today
		m.records = append(m.records, rec)
	}
	return nil
}

// ListDistinctTradingDates implements Repository.
func (m *MemoryRepository) ListDistinctTradingDates(ctx context.Context, limit int) ([]time.Time, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, rec := range m.records {
		if _, ok := seen[rec.Date]; ok {
			continue
		}
		seen[rec.Date] = struct{}{}
		dates = append(dates, rec.Date)
	}
	m.mu.RUnlock()

	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

// QueryDynamics implements Repository.
func (m *MemoryRepository) QueryDynamics(ctx context.Context, filter domain.TradeFilter, dr domain.DateRange) ([]domain.TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.selectNewestFirst(func(rec domain.TradeRecord) bool {
		return filter.Matches(rec) && dr.Contains(rec.Date)
	}, 0), nil
}

// QueryLatest implements Repository.
func (m *MemoryRepository) QueryLatest(ctx context.Context, filter domain.TradeFilter) ([]domain.TradeRecord, error) {
	if !filter.OilID.IsSet() {
		return nil, ErrOilIDRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.selectNewestFirst(filter.Matches, 1), nil
}

// Ping implements Repository.
func (m *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements Repository.
func (m *MemoryRepository) Close() {}

// Len returns the number of stored records.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryRepository) selectNewestFirst(match func(domain.TradeRecord) bool, limit int) []domain.TradeRecord {
	m.mu.RLock()
	out := []domain.TradeRecord{}
	for _, rec := range m.records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ Repository = (*MemoryRepository)(nil)
