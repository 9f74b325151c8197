package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spimex/internal/cache"
	"spimex/internal/config"
	"spimex/internal/infrastructure"
	"spimex/internal/storage"
	"spimex/pkg/contracts/domain"
)

// TradingService answers the trading result queries.
type TradingService struct {
	repo     storage.Repository
	cache    cache.Cache
	datesKey string
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
}

// NewTradingService creates a TradingService. Cached date listings live
// under cfg.DatesKey for cfg.TTL.
func NewTradingService(repo storage.Repository, c cache.Cache, cfg config.CacheConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *TradingService {
	key := cfg.DatesKey
	if key == "" {
		key = config.DefaultDatesKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	return &TradingService{
		repo:     repo,
		cache:    c,
		datesKey: key,
		ttl:      ttl,
		logger:   infrastructure.WithComponent(logger, "trading_service"),
		metrics:  metrics,
	}
}

// GetLastTradingDates returns up to limit distinct trading days, newest
// first. A cached listing is served when present; otherwise storage is
// queried and its full answer cached.
func (s *TradingService) GetLastTradingDates(ctx context.Context, limit int) ([]time.Time, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	if dates, ok := s.cachedDates(ctx); ok {
		s.metrics.RecordCacheLookup(ctx, true)
		return truncate(dates, limit), nil
	}
	s.metrics.RecordCacheLookup(ctx, false)

	dates, err := s.repo.ListDistinctTradingDates(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list trading dates: %w", err)
	}

	encoded := make([]string, len(dates))
	for i, d := range dates {
		encoded[i] = domain.FormatTradingDay(d)
	}
	if err := s.cache.Set(ctx, s.datesKey, encoded, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", s.datesKey),
			slog.String("error", err.Error()))
	}

	return truncate(dates, limit), nil
}

// cachedDates reads the cached listing. Any cache failure and an empty
// listing count as a miss.
func (s *TradingService) cachedDates(ctx context.Context) ([]time.Time, bool) {
	raw, ok, err := s.cache.Get(ctx, s.datesKey)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed",
			slog.String("key", s.datesKey),
			slog.String("error", err.Error()))
		return nil, false
	}
	if !ok || len(raw) == 0 {
		return nil, false
	}

	dates := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := domain.ParseTradingDay(r)
		if err != nil {
			s.logger.WarnContext(ctx, "cached trading date unreadable",
				slog.String("key", s.datesKey),
				slog.String("value", r))
			return nil, false
		}
		dates = append(dates, d)
	}
	return dates, true
}

// GetDynamics returns the records matching filter within dr, newest first.
func (s *TradingService) GetDynamics(ctx context.Context, filter domain.TradeFilter, dr domain.DateRange) ([]domain.TradeRecord, error) {
	if !dr.Valid() {
		return nil, ErrInvalidDateRange
	}
	records, err := s.repo.QueryDynamics(ctx, filter, dr)
	if err != nil {
		return nil, fmt.Errorf("query dynamics: %w", err)
	}
	return records, nil
}

// GetTradingResults returns the newest record matching filter. OilID must
// be set.
func (s *TradingService) GetTradingResults(ctx context.Context, filter domain.TradeFilter) ([]domain.TradeRecord, error) {
	if !filter.OilID.IsSet() {
		return nil, ErrOilIDRequired
	}
	records, err := s.repo.QueryLatest(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query latest results: %w", err)
	}
	return records, nil
}

func truncate(dates []time.Time, limit int) []time.Time {
	if len(dates) > limit {
		return dates[:limit]
	}
	return dates
}
