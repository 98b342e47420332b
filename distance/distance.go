package distance

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Euclidean calculates the L2 distance between two vectors.
// Panics if the vectors have different lengths.
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// SquaredEuclidean calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Manhattan calculates the L1 distance between two vectors.
func Manhattan(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

// Chebyshev calculates the L-infinity distance between two vectors.
func Chebyshev(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// Metric represents the distance metric used for clustering.
type Metric int

const (
	MetricEuclidean Metric = iota
	MetricManhattan
	MetricChebyshev
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricManhattan:
		return "manhattan"
	case MetricChebyshev:
		return "chebyshev"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// ParseMetric resolves a metric by its name (case-insensitive).
// "l2" and "l1" are accepted as aliases.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "euclidean", "l2":
		return MetricEuclidean, nil
	case "manhattan", "l1":
		return MetricManhattan, nil
	case "chebyshev", "linf":
		return MetricChebyshev, nil
	default:
		return 0, fmt.Errorf("unsupported metric: %q", name)
	}
}

// Func is a function type for distance calculation.
// Implementations must be pure and return a non-negative value.
type Func func(a, b []float64) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	case MetricManhattan:
		return Manhattan, nil
	case MetricChebyshev:
		return Chebyshev, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
