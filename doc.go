// Package coreset provides distributed k-means clustering over coresets.
//
// A Clusterer runs a fixed group of workers (ranks) that share the clustering
// state through one-sided windows: the data, the per-point assignments, the
// centroids and the member counts. Each rank owns a contiguous slice of the
// points and writes only its own slice; phases are separated by collective
// fences.
//
// # Quick Start
//
//	ds, _ := dataset.FromRows(rows)
//	c, _ := coreset.New(
//	    coreset.WithNumClusters(8),
//	    coreset.WithNumRestarts(5),
//	    coreset.WithNumWorkers(4),
//	    coreset.WithSeed(42),
//	)
//	res, _ := c.Fit(ctx, ds)
//	fmt.Println(res.Error, res.Counts)
//
// # Coresets
//
// FitCoreset clusters a small weighted sample instead of the full dataset.
// Points are drawn with probability
//
//	q_i = 1/(2N) + d_i/(2T)
//
// where d_i is the squared distance to the dataset mean and T the sum of all
// d_i, and weighted by the inverse of their draw probability. Each worker
// samples its own slice proportionally to its share of the probability mass,
// so the raw data is never gathered. The full dataset is then assigned to the
// centroids found on the coreset:
//
//	c, _ := coreset.New(coreset.WithNumClusters(8), coreset.WithSampleSize(10_000))
//	res, _ := c.FitCoreset(ctx, ds)
//	fmt.Println(res.Error, res.DatasetError)
//
// # Restarts
//
// Every restart seeds with k-means++ and iterates Lloyd's algorithm until no
// assignment changes or the iteration budget is spent. The restart with the
// lowest error wins; ties go to the earliest restart. Empty clusters keep
// their previous centroid.
//
// # Failures
//
// Configuration errors are returned by New and the setters. Precondition
// violations are reported as *PreconditionError before any window is
// allocated. If any worker fails, every other worker is aborted at its next
// collective call and the fit returns the combined error.
package coreset
