package coreset

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordFit is called after each Fit or FitCoreset.
	// workers is the group size, err is nil if successful.
	RecordFit(workers int, duration time.Duration, err error)

	// RecordRestart is called after each restart with its final error.
	RecordRestart(iterations int, sse float64, converged bool, duration time.Duration)

	// RecordCoreset is called after each coreset construction.
	RecordCoreset(size int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFit(int, time.Duration, error)             {}
func (NoopMetricsCollector) RecordRestart(int, float64, bool, time.Duration) {}
func (NoopMetricsCollector) RecordCoreset(int, time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FitCount          atomic.Int64
	FitErrors         atomic.Int64
	FitTotalNanos     atomic.Int64
	RestartCount      atomic.Int64
	RestartIterations atomic.Int64
	RestartConverged  atomic.Int64
	CoresetCount      atomic.Int64
	CoresetErrors     atomic.Int64
	CoresetPoints     atomic.Int64
}

// RecordFit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFit(workers int, duration time.Duration, err error) {
	b.FitCount.Add(1)
	b.FitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FitErrors.Add(1)
	}
}

// RecordRestart implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestart(iterations int, sse float64, converged bool, duration time.Duration) {
	b.RestartCount.Add(1)
	b.RestartIterations.Add(int64(iterations))
	if converged {
		b.RestartConverged.Add(1)
	}
}

// RecordCoreset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCoreset(size int, duration time.Duration, err error) {
	b.CoresetCount.Add(1)
	if err != nil {
		b.CoresetErrors.Add(1)
		return
	}
	b.CoresetPoints.Add(int64(size))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FitCount:          b.FitCount.Load(),
		FitErrors:         b.FitErrors.Load(),
		FitAvgNanos:       b.getAvgFitNanos(),
		RestartCount:      b.RestartCount.Load(),
		RestartIterations: b.RestartIterations.Load(),
		RestartConverged:  b.RestartConverged.Load(),
		CoresetCount:      b.CoresetCount.Load(),
		CoresetErrors:     b.CoresetErrors.Load(),
		CoresetPoints:     b.CoresetPoints.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFitNanos() int64 {
	count := b.FitCount.Load()
	if count == 0 {
		return 0
	}
	return b.FitTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FitCount          int64
	FitErrors         int64
	FitAvgNanos       int64
	RestartCount      int64
	RestartIterations int64
	RestartConverged  int64
	CoresetCount      int64
	CoresetErrors     int64
	CoresetPoints     int64
}
