// Command ingest loads trading results into storage once and exits.
//
// Without flags it downloads the configured range of the document archive.
// With -dir it parses the .xls/.xlsx files already present in a directory.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"spimex/internal/app"
)

func main() {
	dir := flag.String("dir", "", "parse documents from this directory instead of downloading them")
	flag.Parse()

	if err := run(*dir); err != nil {
		slog.Error("Ingestion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(dir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	report, err := application.Ingest(ctx, dir)
	if err != nil {
		return err
	}

	application.Logger.Info("Ingestion finished",
		slog.Int("files_fetched", report.FilesFetched),
		slog.Int("files_parsed", report.FilesParsed),
		slog.Int("files_failed", report.FilesFailed),
		slog.Int("rows_inserted", report.RowsInserted),
		slog.Int("batches_failed", report.BatchesFailed),
		slog.Duration("duration", report.Duration))
	return nil
}
