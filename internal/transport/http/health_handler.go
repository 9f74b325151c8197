package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"spimex/internal/services"
	"spimex/pkg/contracts"
	v1 "spimex/pkg/contracts/api/v1"
)

// HealthService reports the state of the process and its dependencies.
type HealthService interface {
	LivenessCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	Version() string
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service HealthService
	name    string
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service HealthService, name string, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service: service,
		name:    name,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// LivenessCheck handles GET /healthz
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, toHealthResponse(h.service.LivenessCheck(r.Context())))
}

// ReadinessCheck handles GET /readyz. A dependency that does not answer
// turns the response into a 503.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.ReadinessCheck(r.Context())
	if status.Status != services.StatusReady {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, toHealthResponse(status))
}

// Version handles GET /version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, v1.VersionResponse{
		Name:      h.name,
		BuildInfo: contracts.GetBuildInfo(h.service.Version()),
	})
}

func toHealthResponse(s services.HealthStatus) v1.HealthResponse {
	resp := v1.HealthResponse{
		Status:    s.Status,
		Version:   s.Version,
		Uptime:    s.Uptime,
		Timestamp: s.Timestamp,
	}
	if len(s.Components) > 0 {
		resp.Checks = make(map[string]string, len(s.Components))
		for name, c := range s.Components {
			if c.Message != "" {
				resp.Checks[name] = c.Status + ": " + c.Message
				continue
			}
			resp.Checks[name] = c.Status
		}
	}
	return resp
}
