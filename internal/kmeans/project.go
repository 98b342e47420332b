package kmeans

import (
	"context"
	"fmt"

	"github.com/hupe1980/coreset/distance"
	"github.com/hupe1980/coreset/internal/partition"
	"github.com/hupe1980/coreset/internal/rma"
)

// Projection is the assignment of a dataset to fixed centroids.
type Projection struct {
	Assignments []int
	Counts      []int
	Error       float64
}

// Project assigns every row of data to its nearest centroid. Error is
// weighted by weights, which may be nil for unit weights. It is collective
// and returns the same projection on every rank.
func Project(ctx context.Context, c *rma.Comm, data, weights *rma.Window[float64], centroids []float64, dist distance.Func) (*Projection, error) {
	dim := data.Width()
	if len(centroids) == 0 || len(centroids)%dim != 0 {
		return nil, fmt.Errorf("%w: %d centroid values for dimension %d", ErrInvalidConfig, len(centroids), dim)
	}
	k := len(centroids) / dim

	clusters, err := partition.New(k, c.Size())
	if err != nil {
		return nil, err
	}
	assign, err := rma.NewWindow[int](ctx, c, "projection.assign", data.Layout(), 1)
	if err != nil {
		return nil, err
	}
	counts, err := rma.NewWindow[int64](ctx, c, "projection.counts", clusters, 1)
	if err != nil {
		return nil, err
	}

	local := data.Local()
	out := assign.Local()
	perCluster := make([]int64, k)
	var sse float64
	for i := range out {
		j, d := Nearest(local[i*dim:(i+1)*dim], centroids, dim, dist)
		out[i] = j
		perCluster[j]++
		if weights != nil {
			sse += weights.Local()[i] * d * d
		} else {
			sse += d * d
		}
	}
	for j, n := range perCluster {
		if n > 0 {
			counts.Accumulate(j, n, rma.Sum[int64])
		}
	}
	if err := assign.Fence(ctx); err != nil {
		return nil, err
	}
	total, err := rma.AllreduceSum(ctx, c, sse)
	if err != nil {
		return nil, err
	}

	p := &Projection{
		Assignments: assign.GetRange(0, assign.Rows(), nil),
		Counts:      make([]int, k),
		Error:       total,
	}
	for j, n := range counts.GetRange(0, k, nil) {
		p.Counts[j] = int(n)
	}

	if err := counts.Free(ctx); err != nil {
		return nil, err
	}
	if err := assign.Free(ctx); err != nil {
		return nil, err
	}
	return p, nil
}
