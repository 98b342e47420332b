package kmeans

import (
	"context"

	"github.com/hupe1980/coreset/internal/rma"
	"github.com/hupe1980/coreset/internal/sampling"
)

// seed picks the K initial centroids of restart r with k-means++.
// Draws are made on rank 0 and broadcast, so every rank consumes the same
// random sequence regardless of the group size.
func (e *engine) seed(ctx context.Context, r int) error {
	if r == 0 && e.cfg.Initial != nil {
		owned := e.centroids.Owned()
		for k := owned.Start; k < owned.End; k++ {
			e.centroids.PutRow(k, e.cfg.Initial[k*e.dim:(k+1)*e.dim])
		}
		if err := e.centroids.Fence(ctx); err != nil {
			return err
		}
		e.refreshCentroids()
		return nil
	}

	var first int
	if e.c.Rank() == 0 {
		first = e.rng.Intn(e.data.Rows())
	}
	first, err := rma.Bcast(ctx, e.c, 0, first)
	if err != nil {
		return err
	}
	if err := e.setCentroid(ctx, 0, first); err != nil {
		return err
	}

	n := e.localLen()
	for i := 0; i < n; i++ {
		d := e.cfg.Distance(e.point(i), e.cent[:e.dim])
		e.minDist[i] = d * d
	}

	sel := make([]float64, n)
	for j := 1; j < e.k; j++ {
		var local float64
		for i := 0; i < n; i++ {
			sel[i] = e.weight(i) * e.minDist[i]
			local += sel[i]
		}
		totals, err := rma.Allgather(ctx, e.c, local)
		if err != nil {
			return err
		}

		var u float64
		if e.c.Rank() == 0 {
			u = e.rng.Float64()
		}
		if u, err = rma.Bcast(ctx, e.c, 0, u); err != nil {
			return err
		}

		idx, err := e.draw(ctx, totals, sel, u)
		if err != nil {
			return err
		}
		if err := e.setCentroid(ctx, j, idx); err != nil {
			return err
		}

		centroid := e.cent[j*e.dim : (j+1)*e.dim]
		for i := 0; i < n; i++ {
			d := e.cfg.Distance(e.point(i), centroid)
			if d*d < e.minDist[i] {
				e.minDist[i] = d * d
			}
		}
	}

	e.logger.Debug("seeded", "restart", r, "first", first)
	return nil
}

// draw resolves the global row selected by u. The rank holding the selected
// mass picks the local row and broadcasts its global index.
func (e *engine) draw(ctx context.Context, totals, sel []float64, u float64) (int, error) {
	part, frac := sampling.SplitFraction(totals, u)
	if part < 0 {
		// Every point coincides with a chosen centroid.
		rows := e.data.Rows()
		idx := int(u * float64(rows))
		if idx >= rows {
			idx = rows - 1
		}
		return idx, nil
	}

	idx := -1
	if e.c.Rank() == part {
		idx = e.data.Owned().Start + sampling.WeightedIndex(sel, frac)
	}
	return rma.Bcast(ctx, e.c, part, idx)
}

// setCentroid copies data row idx into centroid row j and fences.
func (e *engine) setCentroid(ctx context.Context, j, idx int) error {
	if e.centroids.Owner(j) == e.c.Rank() {
		e.centroids.PutRow(j, e.data.GetRow(idx, nil))
	}
	if err := e.centroids.Fence(ctx); err != nil {
		return err
	}
	e.refreshCentroids()
	return nil
}
