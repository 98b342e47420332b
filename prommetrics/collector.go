// Package prommetrics exports clustering metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/coreset"
)

var _ coreset.MetricsCollector = (*Collector)(nil)

// Collector implements coreset.MetricsCollector with Prometheus metrics.
type Collector struct {
	FitTotal          *prometheus.CounterVec
	FitLatency        prometheus.Histogram
	Workers           prometheus.Gauge
	RestartTotal      *prometheus.CounterVec
	RestartIterations prometheus.Histogram
	RestartError      prometheus.Gauge
	CoresetTotal      *prometheus.CounterVec
	CoresetSize       prometheus.Gauge
	CoresetLatency    prometheus.Histogram
}

// New registers the collector's metrics with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Collector {
	return &Collector{
		FitTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fit_total",
				Help:      "Total number of fits",
			},
			[]string{"status"}, // success/error
		),
		FitLatency: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fit_duration_seconds",
				Help:      "Duration of fits in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Workers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers",
				Help:      "Number of workers of the last fit",
			},
		),
		RestartTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restart_total",
				Help:      "Total number of restarts",
			},
			[]string{"converged"}, // true/false
		),
		RestartIterations: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "restart_iterations",
				Help:      "Lloyd iterations per restart",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		RestartError: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "restart_error",
				Help:      "Final error of the last restart",
			},
		),
		CoresetTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coreset_total",
				Help:      "Total number of coreset constructions",
			},
			[]string{"status"},
		),
		CoresetSize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "coreset_size",
				Help:      "Size of the last coreset",
			},
		),
		CoresetLatency: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "coreset_duration_seconds",
				Help:      "Duration of coreset constructions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// RecordFit implements coreset.MetricsCollector.
func (c *Collector) RecordFit(workers int, duration time.Duration, err error) {
	c.FitTotal.WithLabelValues(status(err)).Inc()
	c.FitLatency.Observe(duration.Seconds())
	c.Workers.Set(float64(workers))
}

// RecordRestart implements coreset.MetricsCollector.
func (c *Collector) RecordRestart(iterations int, sse float64, converged bool, _ time.Duration) {
	label := "false"
	if converged {
		label = "true"
	}
	c.RestartTotal.WithLabelValues(label).Inc()
	c.RestartIterations.Observe(float64(iterations))
	c.RestartError.Set(sse)
}

// RecordCoreset implements coreset.MetricsCollector.
func (c *Collector) RecordCoreset(size int, duration time.Duration, err error) {
	c.CoresetTotal.WithLabelValues(status(err)).Inc()
	c.CoresetLatency.Observe(duration.Seconds())
	if err == nil {
		c.CoresetSize.Set(float64(size))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
