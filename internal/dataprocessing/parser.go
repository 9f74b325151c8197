package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"spimex/internal/config"
	"spimex/internal/infrastructure"
	"spimex/pkg/contracts/domain"
)

// Table layout of a trading results sheet, in table coordinates.
const (
	dateRow         = 2
	labelCol        = 1
	headerScanStart = 4
	dataOffset      = 3

	productIDCol   = 1
	productNameCol = 2
	basisNameCol   = 3
	volumeCol      = 4
	totalCol       = 5
	countCol       = 14

	documentDateLayout = "02.01.2006"
)

// Document level parse failures. A row level ErrNotInteger only skips the row.
var (
	ErrHeaderNotFound = errors.New("header marker not found")
	ErrTotalNotFound  = errors.New("total marker not found")
	ErrDateCell       = errors.New("document date cell unreadable")
	ErrNotInteger     = errors.New("not an integer")
)

// Batch is the parsed content of one document, in sheet order.
type Batch struct {
	Path    string
	Records []domain.TradeRecord
}

// Parser turns trading results spreadsheets into trade records.
type Parser struct {
	maxRows       int
	workers       int
	headerMarkers []string
	totalMarkers  []string
	readerFor     func(path string) (RowReader, error)
	logger        *slog.Logger
	metrics       *infrastructure.BusinessMetrics
}

// NewParser creates a parser. A non-positive worker count means one worker
// per CPU.
func NewParser(cfg config.ParserConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Parser {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = config.DefaultMaxRows
	}
	return &Parser{
		maxRows:       maxRows,
		workers:       workers,
		headerMarkers: cfg.HeaderMarkers,
		totalMarkers:  cfg.TotalMarkers,
		readerFor:     ReaderFor,
		logger:        infrastructure.WithComponent(logger, "parser"),
		metrics:       metrics,
	}
}

// ParseAll parses paths on a bounded pool of workers and returns one batch
// per file that parsed. Files that fail are logged and left out. Batches
// are in no particular order. The only error is cancellation of ctx.
func (p *Parser) ParseAll(ctx context.Context, paths []string) ([]Batch, error) {
	results := make([]*Batch, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := p.ParseOne(path)
			p.metrics.RecordParse(gctx, err == nil)
			if err != nil {
				p.logger.WarnContext(gctx, "document skipped",
					slog.String("file", path),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = &Batch{Path: path, Records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batches := make([]Batch, 0, len(results))
	for _, b := range results {
		if b != nil {
			batches = append(batches, *b)
		}
	}
	return batches, nil
}

// ParseOne extracts the trade records of a single document.
func (p *Parser) ParseOne(path string) ([]domain.TradeRecord, error) {
	reader, err := p.readerFor(path)
	if err != nil {
		return nil, err
	}
	rows, err := reader.ReadRows(path, p.maxRows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	records, err := p.parseRows(path, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func (p *Parser) parseRows(path string, rows [][]string) ([]domain.TradeRecord, error) {
	bound := min(len(rows), p.maxRows)

	date, err := documentDate(cell(rows, dateRow, labelCol))
	if err != nil {
		return nil, err
	}

	header := -1
	for i := headerScanStart; i < bound; i++ {
		if equalsAny(cell(rows, i, labelCol), p.headerMarkers) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, fmt.Errorf("%w within %d rows", ErrHeaderNotFound, bound)
	}

	var records []domain.TradeRecord
	for i := header + dataOffset; i < bound; i++ {
		if containsAny(cell(rows, i, labelCol), p.totalMarkers) {
			p.logger.Debug("document parsed",
				slog.String("file", path),
				slog.String("date", domain.FormatTradingDay(date)),
				slog.Int("records", len(records)))
			return records, nil
		}

		rec, ok := p.parseRow(path, i, rows[i], date)
		if ok {
			records = append(records, rec)
		}
	}
	return nil, fmt.Errorf("%w within %d rows", ErrTotalNotFound, bound)
}

// parseRow converts one data row. Rows without trades (count below one or
// not a number) and malformed rows are skipped.
func (p *Parser) parseRow(path string, index int, row []string, date time.Time) (domain.TradeRecord, bool) {
	count, err := parseInteger(at(row, countCol))
	if err != nil || count < 1 {
		return domain.TradeRecord{}, false
	}

	volume, err := parseInteger(at(row, volumeCol))
	if err != nil {
		p.warnRow(path, index, "volume", err)
		return domain.TradeRecord{}, false
	}
	total, err := parseInteger(at(row, totalCol))
	if err != nil {
		p.warnRow(path, index, "total", err)
		return domain.TradeRecord{}, false
	}

	rec, err := domain.NewTradeRecord(
		strings.TrimSpace(at(row, productIDCol)),
		strings.TrimSpace(at(row, productNameCol)),
		strings.TrimSpace(at(row, basisNameCol)),
		volume, total, count, date,
	)
	if err != nil {
		p.warnRow(path, index, "record", err)
		return domain.TradeRecord{}, false
	}
	return rec, true
}

func (p *Parser) warnRow(path string, index int, field string, err error) {
	p.logger.Warn("row skipped",
		slog.String("file", path),
		slog.Int("row", index),
		slog.String("field", field),
		slog.String("error", err.Error()))
}

// documentDate reads the trailing DD.MM.YYYY of the date cell.
func documentDate(s string) (time.Time, error) {
	r := []rune(strings.TrimSpace(s))
	if len(r) < len(documentDateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateCell, s)
	}
	t, err := time.Parse(documentDateLayout, string(r[len(r)-len(documentDateLayout):]))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateCell, s)
	}
	return t, nil
}

// parseInteger accepts integers written with space thousands separators or
// with an integral fraction such as "12.0".
func parseInteger(s string) (int64, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrNotInteger)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	return int64(f), nil
}

func cell(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) {
		return ""
	}
	return at(rows[r], c)
}

func at(row []string, c int) string {
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}

func equalsAny(s string, markers []string) bool {
	s = strings.TrimSpace(s)
	for _, m := range markers {
		if s == m {
			return true
		}
	}
	return false
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
