package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"spimex/internal/infrastructure"
)

// Pinger is implemented by the storage and cache backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health statuses.
const (
	StatusAlive    = "alive"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// ComponentHealth is the state of one dependency.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthStatus is the answer to a liveness or readiness probe.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Runtime    map[string]any             `json:"runtime,omitempty"`
}

// HealthService provides health check functionality.
type HealthService struct {
	version   string
	checks    map[string]Pinger
	timeout   time.Duration
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a HealthService probing checks by name on
// readiness.
func NewHealthService(version string, checks map[string]Pinger, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   version,
		checks:    checks,
		timeout:   2 * time.Second,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// LivenessCheck reports that the process is serving.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Round(time.Second).String(),
		Runtime: map[string]any{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck pings every dependency. The service is ready only when
// all of them answer.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     StatusReady,
		Timestamp:  time.Now(),
		Version:    hs.version,
		Uptime:     time.Since(hs.startTime).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth, len(hs.checks)),
	}

	for name, check := range hs.checks {
		pctx, cancel := context.WithTimeout(ctx, hs.timeout)
		err := check.Ping(pctx)
		cancel()

		if err != nil {
			status.Status = StatusNotReady
			status.Components[name] = ComponentHealth{Status: StatusNotReady, Message: err.Error()}
			hs.logger.WarnContext(ctx, "dependency not ready",
				slog.String("dependency", name),
				slog.String("error", err.Error()))
			continue
		}
		status.Components[name] = ComponentHealth{Status: StatusReady}
	}
	return status
}

// Version returns the service version.
func (hs *HealthService) Version() string {
	return hs.version
}
