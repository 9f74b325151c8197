package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"spimex/internal/config"
)

// MeterName is the instrumentation scope for tracers and meters.
const MeterName = "spimex"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics according to cfg. Disabled
// signals fall back to no-op implementations so callers never see nil.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()
	logger = WithComponent(logger, "otel")

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", GenerateTraceID()),
	)

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
		otel.SetTracerProvider(tp)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if cfg.MetricsEnabled {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	return providers, nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BusinessMetrics holds the pipeline and API instruments.
// A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	PagesFetched        metric.Int64Counter
	DocumentsDownloaded metric.Int64Counter
	FilesParsed         metric.Int64Counter
	RowsInserted        metric.Int64Counter
	BatchesFailed       metric.Int64Counter
	CacheLookups        metric.Int64Counter
	CacheFlushes        metric.Int64Counter
	IngestDuration      metric.Float64Histogram
	HTTPRequests        metric.Int64Counter
	HTTPDuration        metric.Float64Histogram
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.PagesFetched, "spimex.pages.fetched", "Index pages requested, by status"},
		{&m.DocumentsDownloaded, "spimex.documents.downloaded", "Documents downloaded, by status"},
		{&m.FilesParsed, "spimex.files.parsed", "Spreadsheets parsed, by status"},
		{&m.RowsInserted, "spimex.rows.inserted", "Trade records persisted"},
		{&m.BatchesFailed, "spimex.batches.failed", "Record batches that failed to persist"},
		{&m.CacheLookups, "spimex.cache.lookups", "Trading date cache lookups, by result"},
		{&m.CacheFlushes, "spimex.cache.flushes", "Scheduled cache flushes, by status"},
		{&m.HTTPRequests, "http.server.requests", "HTTP requests served"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.IngestDuration, err = meter.Float64Histogram(
		"spimex.ingest.duration",
		metric.WithDescription("Ingestion run duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

func statusAttr(ok bool) metric.AddOption {
	status := "ok"
	if !ok {
		status = "failed"
	}
	return metric.WithAttributes(attribute.String("status", status))
}

// RecordPageFetch counts one index page request.
func (m *BusinessMetrics) RecordPageFetch(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.PagesFetched.Add(ctx, 1, statusAttr(ok))
}

// RecordDownload counts one document download.
func (m *BusinessMetrics) RecordDownload(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.DocumentsDownloaded.Add(ctx, 1, statusAttr(ok))
}

// RecordParse counts one parsed spreadsheet.
func (m *BusinessMetrics) RecordParse(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.FilesParsed.Add(ctx, 1, statusAttr(ok))
}

// RecordBatch counts a persisted or failed batch.
func (m *BusinessMetrics) RecordBatch(ctx context.Context, rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.BatchesFailed.Add(ctx, 1)
		return
	}
	m.RowsInserted.Add(ctx, int64(rows))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *BusinessMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordCacheFlush counts a scheduled flush.
func (m *BusinessMetrics) RecordCacheFlush(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.CacheFlushes.Add(ctx, 1, statusAttr(ok))
}

// RecordIngest records the duration of an ingestion run.
func (m *BusinessMetrics) RecordIngest(ctx context.Context, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.IngestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// RecordHTTPRequest records one served request.
func (m *BusinessMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequests.Add(ctx, 1, attrs)
	m.HTTPDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordError marks the span in ctx as failed.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
