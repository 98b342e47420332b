// Package testutil provides dataset generators and reference computations
// for tests and benchmarks.
//
// # Datasets
//
//	rng := testutil.NewRNG(seed)
//	ds := rng.Blobs([][]float64{{0, 0}, {10, 10}}, 100, 0.5)
//	ds = rng.Uniform(1000, 8)
//
// # Reference Objective
//
//	assign, sse := testutil.Assign(ds, centroids)
//	sse = testutil.SSE(ds, assignments, centroids)
package testutil
