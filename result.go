package coreset

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/coreset/dataset"
	"github.com/hupe1980/coreset/internal/kmeans"
)

// RestartStats describes one restart of a fit.
type RestartStats struct {
	Restart       int
	Error         float64
	Iterations    int
	Converged     bool
	EmptyClusters int
	// Trace holds the objective after every assignment phase. It is
	// non-increasing for Euclidean distance.
	Trace    []float64
	Duration time.Duration
}

// Result is the best clustering found by a fit. It is immutable once
// returned.
type Result struct {
	// Assignments maps every dataset point to its cluster in [0, K).
	Assignments []int
	// Centroids holds K rows of NumFeatures coordinates.
	Centroids [][]float64
	// Counts holds the number of dataset points per cluster.
	Counts []int
	// Error is the objective of the winning restart: the weighted sum of
	// squared distances of the clustered set (the coreset for FitCoreset).
	Error float64
	// DatasetError is the weighted sum of squared distances of the full
	// dataset to its assigned centroids. Equal to Error for Fit.
	DatasetError float64
	// Restart is the index of the winning restart.
	Restart  int
	Restarts []RestartStats
}

// K returns the number of clusters.
func (r *Result) K() int { return len(r.Centroids) }

// Members returns the points assigned to cluster k. Rows fit in uint32
// because fits reject datasets above MaxPoints.
func (r *Result) Members(k int) *roaring.Bitmap {
	bm := roaring.New()
	for i, a := range r.Assignments {
		if a == k {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	c := &Result{
		Assignments:  append([]int(nil), r.Assignments...),
		Centroids:    make([][]float64, len(r.Centroids)),
		Counts:       append([]int(nil), r.Counts...),
		Error:        r.Error,
		DatasetError: r.DatasetError,
		Restart:      r.Restart,
		Restarts:     make([]RestartStats, len(r.Restarts)),
	}
	for k, ctr := range r.Centroids {
		c.Centroids[k] = append([]float64(nil), ctr...)
	}
	for i, st := range r.Restarts {
		st.Trace = append([]float64(nil), st.Trace...)
		c.Restarts[i] = st
	}
	return c
}

func newResult(out *kmeans.Outcome, dim int) *Result {
	res := &Result{
		Assignments:  out.Assignments,
		Centroids:    make([][]float64, len(out.Centroids)/dim),
		Counts:       out.Counts,
		Error:        out.Error,
		DatasetError: out.Error,
		Restart:      out.Restart,
		Restarts:     make([]RestartStats, len(out.Restarts)),
	}
	for k := range res.Centroids {
		res.Centroids[k] = out.Centroids[k*dim : (k+1)*dim : (k+1)*dim]
	}
	for i, st := range out.Restarts {
		res.Restarts[i] = RestartStats(st)
	}
	return res
}

// Coreset is a weighted sample of a dataset.
type Coreset struct {
	// Points holds the sampled rows and their weights.
	Points *dataset.Dataset
	// Indices maps every coreset row to its source row.
	Indices []int
	// PerWorker holds the number of draws made by each rank.
	PerWorker []int
	// TotalWeight is the sum of the weights; it estimates the dataset size.
	TotalWeight float64
}

// Len returns the number of coreset rows.
func (cs *Coreset) Len() int { return cs.Points.Len() }

// Sources returns the distinct source rows of the coreset. Rows fit in
// uint32 because fits reject datasets above MaxPoints.
func (cs *Coreset) Sources() *roaring.Bitmap {
	bm := roaring.New()
	for _, i := range cs.Indices {
		bm.Add(uint32(i))
	}
	return bm
}
