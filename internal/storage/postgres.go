package storage

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"spimex/internal/config"
	"spimex/internal/infrastructure"
	"spimex/pkg/contracts/domain"
)

//go:embed schema.sql
var schemaSQL string

var insertColumns = []string{
	"exchange_product_id",
	"exchange_product_name",
	"oil_id",
	"delivery_basis_id",
	"delivery_basis_name",
	"delivery_type_id",
	"volume",
	"total",
	"count",
	"date",
}

var selectColumns = []string{
	"id",
	"exchange_product_id",
	"exchange_product_name",
	"oil_id",
	"delivery_basis_id",
	"delivery_basis_name",
	"delivery_type_id",
	"volume",
	"total",
	"count",
	"date",
	"created_on",
	"updated_on",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the subset of *pgxpool.Pool used by PostgresRepository.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PostgresRepository stores trade records in PostgreSQL.
type PostgresRepository struct {
	db     DB
	logger *slog.Logger
}

// NewPostgresRepository creates a repository on db.
func NewPostgresRepository(db DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: infrastructure.WithComponent(logger, "storage"),
	}
}

// EnsureSchema creates the trade records table and its trigger if missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	r.logger.InfoContext(ctx, "schema ready", slog.String("table", TableName))
	return nil
}

// InsertBatch implements Repository with a COPY inside a transaction.
func (r *PostgresRepository) InsertBatch(ctx context.Context, records []domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{TableName}, insertColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{
				rec.ExchangeProductID,
				rec.ExchangeProductName,
				rec.OilID,
				rec.DeliveryBasisID,
				rec.DeliveryBasisName,
				rec.DeliveryTypeID,
				rec.Volume,
				rec.Total,
				rec.Count,
				domain.FormatTradingDay(rec.Date),
			}, nil
		}))
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("copy %d records: %w", len(records), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.DebugContext(ctx, "batch inserted", slog.Int64("rows", n))
	return nil
}

// ListDistinctTradingDates implements Repository.
func (r *PostgresRepository) ListDistinctTradingDates(ctx context.Context, limit int) ([]time.Time, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	query, args, err := distinctDatesQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trading dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan trading date: %w", err)
		}
		d, err := domain.ParseTradingDay(s)
		if err != nil {
			return nil, fmt.Errorf("stored trading date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trading dates: %w", err)
	}
	return dates, nil
}

// QueryDynamics implements Repository.
func (r *PostgresRepository) QueryDynamics(ctx context.Context, filter domain.TradeFilter, dr domain.DateRange) ([]domain.TradeRecord, error) {
	return r.queryRecords(ctx, dynamicsQuery(filter, dr))
}

// QueryLatest implements Repository.
func (r *PostgresRepository) QueryLatest(ctx context.Context, filter domain.TradeFilter) ([]domain.TradeRecord, error) {
	if !filter.OilID.IsSet() {
		return nil, ErrOilIDRequired
	}
	return r.queryRecords(ctx, latestQuery(filter))
}

// Ping verifies the connection is healthy.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() {
	r.db.Close()
}

func (r *PostgresRepository) queryRecords(ctx context.Context, b sq.SelectBuilder) ([]domain.TradeRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	records := []domain.TradeRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	return records, nil
}

func scanRecord(rows pgx.Rows) (domain.TradeRecord, error) {
	var (
		rec  domain.TradeRecord
		date string
	)
	err := rows.Scan(
		&rec.ID,
		&rec.ExchangeProductID,
		&rec.ExchangeProductName,
		&rec.OilID,
		&rec.DeliveryBasisID,
		&rec.DeliveryBasisName,
		&rec.DeliveryTypeID,
		&rec.Volume,
		&rec.Total,
		&rec.Count,
		&date,
		&rec.CreatedOn,
		&rec.UpdatedOn,
	)
	if err != nil {
		return rec, fmt.Errorf("scan trade record: %w", err)
	}
	if rec.Date, err = domain.ParseTradingDay(date); err != nil {
		return rec, fmt.Errorf("stored trading date %q: %w", date, err)
	}
	return rec, nil
}

func distinctDatesQuery(limit int) sq.SelectBuilder {
	return psql.Select("date").
		Distinct().
		From(TableName).
		OrderBy("date DESC").
		Limit(uint64(limit))
}

func dynamicsQuery(filter domain.TradeFilter, dr domain.DateRange) sq.SelectBuilder {
	return applyFilter(psql.Select(selectColumns...).From(TableName), filter).
		Where(sq.Expr("date BETWEEN ? AND ?",
			domain.FormatTradingDay(dr.Start),
			domain.FormatTradingDay(dr.End))).
		OrderBy("date DESC")
}

func latestQuery(filter domain.TradeFilter) sq.SelectBuilder {
	return applyFilter(psql.Select(selectColumns...).From(TableName), filter).
		OrderBy("date DESC").
		Limit(1)
}

// applyFilter adds one equality predicate per present filter.
func applyFilter(b sq.SelectBuilder, filter domain.TradeFilter) sq.SelectBuilder {
	for _, p := range filter.Predicates() {
		b = b.Where(sq.Eq{string(p.Field): p.Value})
	}
	return b
}

var _ Repository = (*PostgresRepository)(nil)
