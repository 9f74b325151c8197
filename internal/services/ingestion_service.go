package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spimex/internal/dataprocessing"
	"spimex/internal/infrastructure"
	"spimex/internal/storage"
)

// DocumentFetcher downloads the published result documents and returns
// their local paths.
type DocumentFetcher interface {
	FetchAll(ctx context.Context) ([]string, error)
}

// DocumentParser turns local documents into record batches.
type DocumentParser interface {
	ParseAll(ctx context.Context, paths []string) ([]dataprocessing.Batch, error)
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	FilesFetched  int           `json:"files_fetched"`
	FilesParsed   int           `json:"files_parsed"`
	FilesFailed   int           `json:"files_failed"`
	RowsInserted  int           `json:"rows_inserted"`
	BatchesFailed int           `json:"batches_failed"`
	Duration      time.Duration `json:"duration"`
}

// IngestionService loads trading results into storage.
type IngestionService struct {
	fetcher DocumentFetcher
	parser  DocumentParser
	repo    storage.Repository
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewIngestionService creates an IngestionService. fetcher may be nil when
// only LoadDirectory is used.
func NewIngestionService(fetcher DocumentFetcher, parser DocumentParser, repo storage.Repository, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *IngestionService {
	return &IngestionService{
		fetcher: fetcher,
		parser:  parser,
		repo:    repo,
		logger:  infrastructure.WithComponent(logger, "ingestion_service"),
		metrics: metrics,
	}
}

// LoadDocuments fetches the document archive, parses every downloaded file
// and stores each file's records in its own transaction.
func (s *IngestionService) LoadDocuments(ctx context.Context) (IngestReport, error) {
	if s.fetcher == nil {
		return IngestReport{}, fmt.Errorf("load documents: no fetcher configured")
	}

	start := time.Now()
	paths, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		report := IngestReport{FilesFetched: len(paths), Duration: time.Since(start)}
		s.metrics.RecordIngest(ctx, report.Duration, false)
		return report, fmt.Errorf("fetch documents: %w", err)
	}
	return s.ingest(ctx, paths, start)
}

// LoadDirectory parses and stores the documents already present in dir.
func (s *IngestionService) LoadDirectory(ctx context.Context, dir string) (IngestReport, error) {
	start := time.Now()
	paths, err := dataprocessing.ListStagedFiles(dir)
	if err != nil {
		return IngestReport{}, err
	}
	return s.ingest(ctx, paths, start)
}

func (s *IngestionService) ingest(ctx context.Context, paths []string, start time.Time) (IngestReport, error) {
	report := IngestReport{FilesFetched: len(paths)}

	batches, err := s.parser.ParseAll(ctx, paths)
	if err != nil {
		report.Duration = time.Since(start)
		s.metrics.RecordIngest(ctx, report.Duration, false)
		return report, fmt.Errorf("parse documents: %w", err)
	}
	report.FilesParsed = len(batches)
	report.FilesFailed = len(paths) - len(batches)

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			s.metrics.RecordIngest(ctx, report.Duration, false)
			return report, err
		}

		err := s.repo.InsertBatch(ctx, batch.Records)
		s.metrics.RecordBatch(ctx, len(batch.Records), err)
		if err != nil {
			report.BatchesFailed++
			s.logger.ErrorContext(ctx, "batch not stored",
				slog.String("file", batch.Path),
				slog.Int("rows", len(batch.Records)),
				slog.String("error", err.Error()))
			continue
		}
		report.RowsInserted += len(batch.Records)
		s.logger.InfoContext(ctx, "batch stored",
			slog.String("file", batch.Path),
			slog.Int("rows", len(batch.Records)))
	}

	report.Duration = time.Since(start)
	s.metrics.RecordIngest(ctx, report.Duration, report.BatchesFailed == 0)
	s.logger.InfoContext(ctx, "ingestion completed",
		slog.Int("files_fetched", report.FilesFetched),
		slog.Int("files_parsed", report.FilesParsed),
		slog.Int("files_failed", report.FilesFailed),
		slog.Int("rows_inserted", report.RowsInserted),
		slog.Int("batches_failed", report.BatchesFailed),
		slog.Duration("duration", report.Duration))
	return report, nil
}
