// Package kmeans implements distributed k-means over shared windows.
//
// Every rank of an rma group calls Run with the same configuration. The
// engine owns five windows: point assignments (laid out like the data),
// centroids and member counts (laid out over the K clusters), and a staging
// window with one row of partial sums per rank. Phases are separated by
// fences:
//
//	reset    assignments = -1, counts = 0                      fence
//	seed     k-means++ draws, owner copies the chosen row      fence per centroid
//	assign   local nearest-centroid writes, count accumulate   fence, allreduce(sse, changed)
//	update   stage partial sums, zero counts                   fence
//	         owners reduce partials in rank order, commit      fence
//
// Partial sums are combined in rank order, so a run is reproducible for a
// fixed seed and group size.
package kmeans
