// Package distance provides the pluggable distance metrics used for clustering.
//
// A metric is any function with the signature of Func. The clustering engine
// squares the returned value, so metrics must return a true distance (not a
// squared one) for the k-means objective to be the sum of squared distances.
//
// # Supported Metrics
//
//   - MetricEuclidean: L2 distance (default)
//   - MetricManhattan: L1 distance
//   - MetricChebyshev: L-infinity distance
//
// # Usage
//
//	d := distance.Euclidean(a, b)
//	fn, err := distance.Provider(distance.MetricManhattan)
package distance
