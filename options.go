package coreset

import (
	"log/slog"

	"github.com/hupe1980/coreset/distance"
	"github.com/hupe1980/coreset/resource"
)

const (
	// DefaultNumClusters is the cluster count used when none is configured.
	DefaultNumClusters = 8

	// DefaultNumRestarts is the number of independent seedings per fit.
	DefaultNumRestarts = 5

	// DefaultNumWorkers is the group size used when none is configured.
	DefaultNumWorkers = 1

	// DefaultMaxIterations caps the update phases of a restart.
	DefaultMaxIterations = 100
)

type options struct {
	numClusters      int
	numRestarts      int
	numWorkers       int
	sampleSize       int
	fallback         bool
	maxIterations    int
	distance         distance.Func
	metric           distance.Metric
	seed             int64
	initial          [][]float64
	metricsCollector MetricsCollector
	logger           *Logger
	rc               *resource.Controller
}

// Option configures a Clusterer.
type Option func(*options)

// WithNumClusters sets K. Must be positive.
func WithNumClusters(k int) Option {
	return func(o *options) {
		o.numClusters = k
	}
}

// WithNumRestarts sets the number of independent k-means++ seedings. The
// restart with the lowest error wins. Must be positive.
func WithNumRestarts(r int) Option {
	return func(o *options) {
		o.numRestarts = r
	}
}

// WithNumWorkers sets the number of ranks that share the clustering state.
// Each rank owns a contiguous slice of the points.
func WithNumWorkers(p int) Option {
	return func(o *options) {
		o.numWorkers = p
	}
}

// WithSampleSize sets the coreset size used by FitCoreset and BuildCoreset.
func WithSampleSize(m int) Option {
	return func(o *options) {
		o.sampleSize = m
	}
}

// WithFullDatasetFallback controls what happens when the sample size is not
// smaller than the dataset. If enabled (the default), the coreset is the
// dataset itself with unit weights; otherwise ErrSampleSizeExceedsData is
// returned.
func WithFullDatasetFallback(enabled bool) Option {
	return func(o *options) {
		o.fallback = enabled
	}
}

// WithMaxIterations caps the update phases of each restart. A final
// assignment always follows the last update.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithDistance sets a custom distance function. It overrides WithMetric.
//
// The objective is the (weighted) sum of squared distances and centroids are
// member means, so Lloyd iterations only decrease the objective for
// Euclidean distance.
func WithDistance(fn distance.Func) Option {
	return func(o *options) {
		o.distance = fn
	}
}

// WithMetric selects a built-in distance. Default: Euclidean.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithSeed fixes the random source. A fit with the same seed, data and
// worker count is reproducible. 0 seeds from the clock.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithInitialCentroids replaces k-means++ seeding for the first restart.
// Later restarts are seeded with k-means++.
func WithInitialCentroids(centroids [][]float64) Option {
	return func(o *options) {
		o.initial = centroids
	}
}

// WithMetricsCollector configures a metrics collector for monitoring fits.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &coreset.BasicMetricsCollector{}
//	c, _ := coreset.New(coreset.WithMetricsCollector(metrics))
//	// ... fit ...
//	stats := metrics.GetStats()
//	fmt.Printf("Fits: %d, Avg latency: %dns\n", stats.FitCount, stats.FitAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := coreset.NewJSONLogger(slog.LevelInfo)
//	c, _ := coreset.New(coreset.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController bounds window memory and blob IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		numClusters:      DefaultNumClusters,
		numRestarts:      DefaultNumRestarts,
		numWorkers:       DefaultNumWorkers,
		fallback:         true,
		maxIterations:    DefaultMaxIterations,
		metric:           distance.MetricEuclidean,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
