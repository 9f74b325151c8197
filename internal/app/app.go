package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"spimex/internal/cache"
	"spimex/internal/config"
	"spimex/internal/dataprocessing"
	apierrors "spimex/internal/errors"
	"spimex/internal/infrastructure"
	customMiddleware "spimex/internal/middleware"
	"spimex/internal/scraper"
	"spimex/internal/services"
	"spimex/internal/storage"
	handlers "spimex/internal/transport/http"
	"spimex/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Repository storage.Repository
	Cache      cache.Cache
	Trading    *services.TradingService
	Ingestion  *services.IngestionService
	Health     *services.HealthService

	Router *chi.Mux
	Server *http.Server

	pageSource    scraper.PageSource
	scheduler     *cache.Scheduler
	systemMetrics *infrastructure.SystemMetrics

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewApplication loads the configuration and builds the application.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(ctx, cfg, logger)
}

// New builds the application from cfg. Storage and cache connections are
// opened here; nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	systemMetrics, err := infrastructure.RegisterSystemMetrics(otelProviders.Meter, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to register system metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		systemMetrics: systemMetrics,
	}

	if err := a.initializeServices(ctx); err != nil {
		a.closeResources(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices opens the backends and wires the services onto them.
func (a *Application) initializeServices(ctx context.Context) error {
	repo, err := storage.NewRepository(ctx, a.Config.Database, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.Repository = repo

	c, err := cache.New(ctx, a.Config.Cache, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	a.Cache = c

	if a.Config.Cache.FlushEnabled {
		a.scheduler = cache.NewScheduler(c, a.Config.Cache.FlushHour, a.Config.Cache.FlushMinute, a.Logger, a.Metrics)
	}

	fetcher, err := a.newFetcher()
	if err != nil {
		return err
	}
	parser := dataprocessing.NewParser(a.Config.Parser, a.Logger, a.Metrics)

	a.Trading = services.NewTradingService(repo, c, a.Config.Cache, a.Logger, a.Metrics)
	a.Ingestion = services.NewIngestionService(fetcher, parser, repo, a.Logger, a.Metrics)
	a.Health = services.NewHealthService(config.AppVersion, map[string]services.Pinger{
		"storage": repo,
		"cache":   c,
	}, a.Logger)
	return nil
}

// newFetcher builds the document fetcher. The browser page source starts
// a headless Chrome and is closed in Stop.
func (a *Application) newFetcher() (*scraper.Fetcher, error) {
	fc := a.Config.Fetcher
	client := scraper.NewHTTPClient(fc.UserAgent)

	switch fc.PageSource {
	case config.PageSourceBrowser:
		browser, err := scraper.NewBrowserPageSource(fc.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		a.pageSource = browser
	default:
		a.pageSource = scraper.NewHTTPPageSource(client)
	}

	fetcher, err := scraper.NewFetcher(fc, a.pageSource, client, a.Logger, a.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	return fetcher, nil
}

// setupRouter configures the chi router and middleware chain.
// Ordering: RequestID, RealIP, OTel, Logger, Recoverer, Timeout.
func (a *Application) setupRouter() {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug")

	r := chi.NewRouter()
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(errorHandler))
	r.Use(customMiddleware.StripSlashes)
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", customMiddleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	health := handlers.NewHealthHandler(a.Health, config.AppName, a.Logger)
	r.Get("/healthz", health.LivenessCheck)
	r.Get("/readyz", health.ReadinessCheck)
	r.Get("/version", health.Version)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Route("/api/"+contracts.APIVersion, func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				errorHandler,
			).Handler)
		}

		trading := handlers.NewTradingHandler(a.Trading, customMiddleware.NewValidator(), a.Logger, errorHandler)
		r.Mount("/trading", trading.Routes())
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the background tasks and the HTTP server. With blocking
// startup ingestion the server only starts once the load has finished.
// A server failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("ingest_on_startup", a.Config.Ingest.OnStartup))

	bgCtx, bgCancel := context.WithCancel(ctx)
	a.bgCancel = bgCancel

	if a.scheduler != nil {
		a.goBackground(func() {
			if err := a.scheduler.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.ErrorContext(bgCtx, "cache scheduler stopped", slog.String("error", err.Error()))
			}
		})
	}

	switch a.Config.Ingest.OnStartup {
	case config.IngestBlocking:
		if _, err := a.Ingestion.LoadDocuments(bgCtx); err != nil {
			return fmt.Errorf("startup ingestion: %w", err)
		}
	case config.IngestBackground:
		a.goBackground(func() {
			if _, err := a.Ingestion.LoadDocuments(bgCtx); err != nil {
				a.Logger.ErrorContext(bgCtx, "startup ingestion failed", slog.String("error", err.Error()))
			}
		})
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

func (a *Application) goBackground(fn func()) {
	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		fn()
	}()
}

// Stop shuts the server down, cancels and joins the background tasks and
// releases every backend.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.bgCancel != nil {
		a.bgCancel()
	}
	a.bgWG.Wait()

	a.closeResources(shutdownCtx)

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Ingest runs one ingestion outside the server: the staging directory dir
// when set, the remote archive otherwise.
func (a *Application) Ingest(ctx context.Context, dir string) (services.IngestReport, error) {
	if dir != "" {
		return a.Ingestion.LoadDirectory(ctx, dir)
	}
	return a.Ingestion.LoadDocuments(ctx)
}

// Close releases the backends without touching the server.
func (a *Application) Close(ctx context.Context) {
	a.closeResources(ctx)
}

func (a *Application) closeResources(ctx context.Context) {
	if closer, ok := a.pageSource.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing page source", slog.String("error", err.Error()))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing cache", slog.String("error", err.Error()))
		}
	}
	if a.Repository != nil {
		a.Repository.Close()
	}
	if a.systemMetrics != nil {
		if err := a.systemMetrics.Unregister(); err != nil {
			a.Logger.ErrorContext(ctx, "Error unregistering system metrics", slog.String("error", err.Error()))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		_ = a.Stop(context.Background())
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
