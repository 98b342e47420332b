package kmeans

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/coreset/internal/rma"
)

// assignStep assigns every local point to its nearest centroid and
// accumulates member counts. It returns the global weighted squared error
// and the number of changed assignments.
func (e *engine) assignStep(ctx context.Context) (float64, int, error) {
	assign := e.assign.Local()
	local := make([]int64, e.k)

	var sse float64
	changed := 0
	for i := range assign {
		k, d := Nearest(e.point(i), e.cent, e.dim, e.cfg.Distance)
		sse += e.weight(i) * d * d
		if assign[i] != k {
			assign[i] = k
			changed++
		}
		local[k]++
	}
	for k, n := range local {
		if n > 0 {
			e.counts.Accumulate(k, n, rma.Sum[int64])
		}
	}

	if err := e.assign.Fence(ctx); err != nil {
		return 0, 0, err
	}
	totals, err := rma.AllreduceSums(ctx, e.c, []float64{sse, float64(changed)})
	if err != nil {
		return 0, 0, err
	}
	return totals[0], int(totals[1]), nil
}

// updateStep recomputes the centroids as weighted member means. Each rank
// stages its partial sums; the owner of a cluster reduces them in rank order
// and commits. A cluster without members keeps its centroid.
func (e *engine) updateStep(ctx context.Context) error {
	row := e.partials.Local()
	for i := range row {
		row[i] = 0
	}
	sums := row[:e.k*e.dim]
	mass := row[e.k*e.dim:]

	assign := e.assign.Local()
	for i, k := range assign {
		w := e.weight(i)
		floats.AddScaled(sums[k*e.dim:(k+1)*e.dim], w, e.point(i))
		mass[k] += w
	}
	e.counts.Fill(0)

	if err := e.partials.Fence(ctx); err != nil {
		return err
	}

	owned := e.centroids.Owned()
	if owned.Len() > 0 {
		acc := make([]float64, owned.Len()*e.dim)
		accMass := make([]float64, owned.Len())
		var staged []float64
		for r := 0; r < e.c.Size(); r++ {
			staged = e.partials.GetRow(r, staged)
			for k := owned.Start; k < owned.End; k++ {
				o := k - owned.Start
				floats.Add(acc[o*e.dim:(o+1)*e.dim], staged[k*e.dim:(k+1)*e.dim])
				accMass[o] += staged[e.k*e.dim+k]
			}
		}
		for k := owned.Start; k < owned.End; k++ {
			o := k - owned.Start
			if accMass[o] <= 0 {
				continue
			}
			centroid := acc[o*e.dim : (o+1)*e.dim]
			floats.Scale(1/accMass[o], centroid)
			e.centroids.PutRow(k, centroid)
		}
	}

	if err := e.centroids.Fence(ctx); err != nil {
		return err
	}
	e.refreshCentroids()
	return nil
}
