package coreset

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/coreset/distance"
	"github.com/hupe1980/coreset/resource"
)

// Config is the file form of the Clusterer options.
//
// Example:
//
//	num_clusters: 8
//	num_restarts: 5
//	num_workers: 4
//	sample_size: 10000
//	metric: euclidean
//	seed: 42
//	log_level: info
//	resources:
//	  memory_limit_bytes: 1073741824
type Config struct {
	NumClusters         int            `yaml:"num_clusters"`
	NumRestarts         int            `yaml:"num_restarts"`
	NumWorkers          int            `yaml:"num_workers"`
	SampleSize          int            `yaml:"sample_size"`
	FullDatasetFallback *bool          `yaml:"full_dataset_fallback"`
	MaxIterations       int            `yaml:"max_iterations"`
	Metric              string         `yaml:"metric"`
	Seed                int64          `yaml:"seed"`
	LogLevel            string         `yaml:"log_level"`
	Resources           ResourceConfig `yaml:"resources"`
}

// ResourceConfig bounds window memory and blob IO.
type ResourceConfig struct {
	MemoryLimitBytes       int64 `yaml:"memory_limit_bytes"`
	MaxConcurrentTransfers int64 `yaml:"max_concurrent_transfers"`
	IOBytesPerSec          int64 `yaml:"io_bytes_per_sec"`
}

// DefaultConfig returns the configuration matching New without options.
func DefaultConfig() *Config {
	fallback := true
	return &Config{
		NumClusters:         DefaultNumClusters,
		NumRestarts:         DefaultNumRestarts,
		NumWorkers:          DefaultNumWorkers,
		FullDatasetFallback: &fallback,
		MaxIterations:       DefaultMaxIterations,
		Metric:              distance.MetricEuclidean.String(),
	}
}

// LoadConfig loads configuration from a YAML file. Fields missing from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration. Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CORESET_* environment variables:
//
//	CORESET_NUM_CLUSTERS
//	CORESET_NUM_RESTARTS
//	CORESET_NUM_WORKERS
//	CORESET_SAMPLE_SIZE
//	CORESET_MAX_ITERATIONS
//	CORESET_METRIC
//	CORESET_SEED
//	CORESET_LOG_LEVEL
func (c *Config) ApplyEnv() error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"CORESET_NUM_CLUSTERS", &c.NumClusters},
		{"CORESET_NUM_RESTARTS", &c.NumRestarts},
		{"CORESET_NUM_WORKERS", &c.NumWorkers},
		{"CORESET_SAMPLE_SIZE", &c.SampleSize},
		{"CORESET_MAX_ITERATIONS", &c.MaxIterations},
	}
	for _, v := range ints {
		s := os.Getenv(v.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
		*v.dst = n
	}

	if s := os.Getenv("CORESET_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("CORESET_SEED: %w", err)
		}
		c.Seed = seed
	}
	if s := os.Getenv("CORESET_METRIC"); s != "" {
		c.Metric = s
	}
	if s := os.Getenv("CORESET_LOG_LEVEL"); s != "" {
		c.LogLevel = s
	}
	return nil
}

// Options converts the configuration into Clusterer options.
func (c *Config) Options() ([]Option, error) {
	metric, err := distance.ParseMetric(c.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDistance, err)
	}

	opts := []Option{
		WithNumClusters(c.NumClusters),
		WithNumRestarts(c.NumRestarts),
		WithNumWorkers(c.NumWorkers),
		WithMaxIterations(c.MaxIterations),
		WithMetric(metric),
		WithSeed(c.Seed),
	}
	if c.SampleSize != 0 {
		opts = append(opts, WithSampleSize(c.SampleSize))
	}
	if c.FullDatasetFallback != nil {
		opts = append(opts, WithFullDatasetFallback(*c.FullDatasetFallback))
	}
	if c.LogLevel != "" {
		level, err := parseLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogLevel(level))
	}
	if r := c.Resources; r != (ResourceConfig{}) {
		opts = append(opts, WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:       r.MemoryLimitBytes,
			MaxConcurrentTransfers: r.MaxConcurrentTransfers,
			IOBytesPerSec:          r.IOBytesPerSec,
		})))
	}
	return opts, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
