package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics exports Go runtime and process gauges. Values are read on
// every collection; nothing is sampled in the background.
type SystemMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// RegisterSystemMetrics registers the runtime gauges on meter.
func RegisterSystemMetrics(meter metric.Meter, startTime time.Time) (*SystemMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutines gauge: %w", err)
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"system_memory_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create heap gauge: %w", err)
	}

	gcCount, err := meter.Int64ObservableCounter(
		"system_gc_count_total",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gc counter: %w", err)
	}

	uptime, err := meter.Float64ObservableGauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	sm := &SystemMetrics{startTime: startTime}
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sm.Snapshot()
		o.ObserveInt64(goroutines, stats.Goroutines)
		o.ObserveInt64(heapAlloc, stats.HeapAlloc)
		o.ObserveInt64(gcCount, int64(stats.GCCount))
		o.ObserveFloat64(uptime, stats.Uptime.Seconds())
		return nil
	}, goroutines, heapAlloc, gcCount, uptime)
	if err != nil {
		return nil, fmt.Errorf("failed to register system metrics callback: %w", err)
	}
	sm.registration = reg
	return sm, nil
}

// SystemStats is a point-in-time view of the runtime.
type SystemStats struct {
	Goroutines int64
	HeapAlloc  int64
	GCCount    uint32
	Uptime     time.Duration
}

// Snapshot reads the current runtime statistics.
func (sm *SystemMetrics) Snapshot() SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return SystemStats{
		Goroutines: int64(runtime.NumGoroutine()),
		HeapAlloc:  int64(mem.HeapAlloc),
		GCCount:    mem.NumGC,
		Uptime:     time.Since(sm.startTime),
	}
}

// Unregister stops reporting the gauges.
func (sm *SystemMetrics) Unregister() error {
	if sm.registration == nil {
		return nil
	}
	return sm.registration.Unregister()
}
