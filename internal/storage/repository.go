package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spimex/internal/config"
	"spimex/pkg/contracts/domain"
)

// TableName is the trade records table.
const TableName = "spimex_trading_results"

var (
	// ErrOilIDRequired is returned by QueryLatest without an oil filter.
	ErrOilIDRequired = errors.New("oil_id filter is required")
	// ErrInvalidLimit is returned for a non-positive date limit.
	ErrInvalidLimit = errors.New("limit must be positive")
	// ErrNegativeCount mirrors the count >= 0 table constraint.
	ErrNegativeCount = errors.New("count must not be negative")
)

// Repository stores and queries trade records.
type Repository interface {
	// InsertBatch stores records in one transaction. Either every record is
	// stored or none is.
	InsertBatch(ctx context.Context, records []domain.TradeRecord) error
	// ListDistinctTradingDates returns up to limit distinct trading days,
	// newest first.
	ListDistinctTradingDates(ctx context.Context, limit int) ([]time.Time, error)
	// QueryDynamics returns the records matching filter within dr, newest
	// first.
	QueryDynamics(ctx context.Context, filter domain.TradeFilter, dr domain.DateRange) ([]domain.TradeRecord, error)
	// QueryLatest returns at most one record: the newest matching filter.
	QueryLatest(ctx context.Context, filter domain.TradeFilter) ([]domain.TradeRecord, error)
	Ping(ctx context.Context) error
	Close()
}

// NewRepository opens the repository selected by cfg.Driver and, when
// AutoMigrate is set, ensures the schema exists.
func NewRepository(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Repository, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryRepository(), nil
	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := NewPostgresRepository(pool, logger)
		if cfg.AutoMigrate {
			if err := repo.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
