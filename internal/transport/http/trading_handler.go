package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "spimex/internal/errors"
	"spimex/internal/infrastructure"
	"spimex/internal/middleware"
	"spimex/internal/services"
	v1 "spimex/pkg/contracts/api/v1"
	"spimex/pkg/contracts/domain"
)

// TradingService is the query side used by TradingHandler.
type TradingService interface {
	GetLastTradingDates(ctx context.Context, limit int) ([]time.Time, error)
	GetDynamics(ctx context.Context, filter domain.TradeFilter, dr domain.DateRange) ([]domain.TradeRecord, error)
	GetTradingResults(ctx context.Context, filter domain.TradeFilter) ([]domain.TradeRecord, error)
}

// TradingHandler serves the trading result queries.
type TradingHandler struct {
	service      TradingService
	binder       *queryBinder
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewTradingHandler creates a TradingHandler.
func NewTradingHandler(service TradingService, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *TradingHandler {
	return &TradingHandler{
		service:      service,
		binder:       newQueryBinder(validator),
		logger:       infrastructure.WithComponent(logger, "trading_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the trading routes.
func (h *TradingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/get_last_trading_dates", h.GetLastTradingDates)
	r.Get("/get_dynamics", h.GetDynamics)
	r.Get("/get_trading_results", h.GetTradingResults)
	return r
}

// GetLastTradingDates handles GET /get_last_trading_dates.
func (h *TradingHandler) GetLastTradingDates(w http.ResponseWriter, r *http.Request) {
	req := v1.LastTradingDatesRequest{Limit: v1.DefaultLastDatesLimit}
	if err := h.binder.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dates, err := h.service.GetLastTradingDates(r.Context(), req.Limit)
	if err != nil {
		h.fail(w, r, "last trading dates", err)
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = domain.FormatTradingDay(d)
	}
	render.JSON(w, r, v1.NewEnvelope(out, len(out)))
}

// GetDynamics handles GET /get_dynamics.
func (h *TradingHandler) GetDynamics(w http.ResponseWriter, r *http.Request) {
	var req v1.DynamicsRequest
	if err := h.binder.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dr, err := req.DateRange()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("start_date", err.Error()))
		return
	}

	records, err := h.service.GetDynamics(r.Context(), req.ToFilter(), dr)
	if err != nil {
		h.fail(w, r, "dynamics", err)
		return
	}
	results := v1.NewTradingResults(records)
	render.JSON(w, r, v1.NewEnvelope(results, len(results)))
}

// GetTradingResults handles GET /get_trading_results.
func (h *TradingHandler) GetTradingResults(w http.ResponseWriter, r *http.Request) {
	var req v1.TradingResultsRequest
	if err := h.binder.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records, err := h.service.GetTradingResults(r.Context(), req.ToFilter())
	if err != nil {
		h.fail(w, r, "trading results", err)
		return
	}
	results := v1.NewTradingResults(records)
	render.JSON(w, r, v1.NewEnvelope(results, len(results)))
}

// fail maps service errors onto API errors.
func (h *TradingHandler) fail(w http.ResponseWriter, r *http.Request, query string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidLimit):
		err = apierrors.ErrValidation("limit", "limit must be greater than 0")
	case errors.Is(err, services.ErrInvalidDateRange):
		err = apierrors.ErrValidation("start_date", "start_date must not be after end_date")
	case errors.Is(err, services.ErrOilIDRequired):
		err = apierrors.ErrValidation("oil_id", "oil_id is required")
	default:
		h.logger.ErrorContext(r.Context(), "query failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
	}
	h.errorHandler.HandleError(w, r, err)
}
