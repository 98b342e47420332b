package sampling

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/coreset/distance"
	"github.com/hupe1980/coreset/internal/partition"
	"github.com/hupe1980/coreset/internal/rma"
)

// ErrEmptyData is returned when the data window has no rows.
var ErrEmptyData = errors.New("sampling: empty data")

// Coreset is a weighted sample distributed over the group. Row i of Points,
// Weights and Indices describe the same draw; Indices holds the source row in
// the data window.
type Coreset struct {
	Points  *rma.Window[float64]
	Weights *rma.Window[float64]
	Indices *rma.Window[int]
}

// Len returns the number of draws.
func (cs *Coreset) Len() int { return cs.Points.Rows() }

// Free collectively releases the coreset windows.
func (cs *Coreset) Free(ctx context.Context) error {
	if err := cs.Points.Free(ctx); err != nil {
		return err
	}
	if err := cs.Weights.Free(ctx); err != nil {
		return err
	}
	return cs.Indices.Free(ctx)
}

// Gather copies the whole coreset into local slices. Callable after the
// fence that closed construction.
func (cs *Coreset) Gather() (points, weights []float64, indices []int) {
	m := cs.Len()
	return cs.Points.GetRange(0, m, nil), cs.Weights.GetRange(0, m, nil), cs.Indices.GetRange(0, m, nil)
}

// Stats summarizes a coreset draw.
type Stats struct {
	Size        int
	PerRank     []int
	TotalWeight float64
}

// Sample draws a coreset of size points from data with the lightweight
// sensitivity distribution
//
//	q_i = a_i/(2W) + a_i*d_i/(2T)
//
// where a_i is the point mass (weights, or 1 if weights is nil), W the total
// mass, d_i the squared distance to the global weighted mean and T the total
// of a_i*d_i. Rank 0 splits the draws over the ranks multinomially by their
// probability mass and broadcasts the counts; each rank then samples its own
// rows independently with rng, so ranks must pass differently seeded
// generators. A draw of row i gets weight a_i/(m*q_i), which keeps the weight
// total unbiased for W even when a rank receives no draws.
//
// Sample is collective. The returned windows are complete on every rank.
func Sample(ctx context.Context, c *rma.Comm, data, weights *rma.Window[float64], size int, dist distance.Func, rng *rand.Rand) (*Coreset, *Stats, error) {
	if size < 1 {
		return nil, nil, fmt.Errorf("sampling: size must be positive, got %d", size)
	}
	if data.Rows() == 0 {
		return nil, nil, ErrEmptyData
	}

	dim := data.Width()
	local := data.Local()
	n := len(local) / dim
	mass := func(i int) float64 {
		if weights == nil {
			return 1
		}
		return weights.Local()[i]
	}

	// Global weighted mean and total mass in one reduction.
	acc := make([]float64, dim+1)
	for i := 0; i < n; i++ {
		a := mass(i)
		floats.AddScaled(acc[:dim], a, local[i*dim:(i+1)*dim])
		acc[dim] += a
	}
	acc, err := rma.AllreduceSums(ctx, c, acc)
	if err != nil {
		return nil, nil, err
	}
	totalMass := acc[dim]
	if totalMass <= 0 {
		return nil, nil, fmt.Errorf("sampling: total weight must be positive, got %g", totalMass)
	}
	mean := acc[:dim]
	floats.Scale(1/totalMass, mean)

	sq := make([]float64, n)
	var localCost float64
	for i := 0; i < n; i++ {
		d := dist(local[i*dim:(i+1)*dim], mean)
		sq[i] = d * d
		localCost += mass(i) * sq[i]
	}
	totalCost, err := rma.AllreduceSum(ctx, c, localCost)
	if err != nil {
		return nil, nil, err
	}

	q := make([]float64, n)
	var share float64
	for i := 0; i < n; i++ {
		a := mass(i)
		if totalCost > 0 {
			q[i] = a/(2*totalMass) + a*sq[i]/(2*totalCost)
		} else {
			q[i] = a / totalMass
		}
		share += q[i]
	}

	shares, err := rma.Allgather(ctx, c, share)
	if err != nil {
		return nil, nil, err
	}
	var perRank []int
	if c.Rank() == 0 {
		perRank = Multinomial(size, shares, rng)
	}
	perRank, err = rma.Bcast(ctx, c, 0, perRank)
	if err != nil {
		return nil, nil, err
	}
	perRank = slices.Clone(perRank)

	layout, err := partition.Weighted(perRank)
	if err != nil {
		return nil, nil, err
	}
	cs, err := allocCoreset(ctx, c, layout, dim)
	if err != nil {
		return nil, nil, err
	}

	owned := data.Owned()
	draws := perRank[c.Rank()]
	points := cs.Points.Local()
	drawWeights := cs.Weights.Local()
	indices := cs.Indices.Local()
	if draws > 0 {
		cum := NewCumulative(q)
		for j := 0; j < draws; j++ {
			i := cum.Pick(rng.Float64())
			copy(points[j*dim:(j+1)*dim], local[i*dim:(i+1)*dim])
			drawWeights[j] = mass(i) / (float64(size) * q[i])
			indices[j] = owned.Start + i
		}
	}

	localWeight := floats.Sum(drawWeights)
	if err := cs.Points.Fence(ctx); err != nil {
		return nil, nil, err
	}
	total, err := rma.AllreduceSum(ctx, c, localWeight)
	if err != nil {
		return nil, nil, err
	}

	c.Logger().Debug("coreset sampled", "draws", draws, "share", share)

	return cs, &Stats{Size: size, PerRank: perRank, TotalWeight: total}, nil
}

// Full returns the whole data window as a coreset with unit (or the given)
// weights. Used when the requested size covers the dataset.
func Full(ctx context.Context, c *rma.Comm, data, weights *rma.Window[float64]) (*Coreset, *Stats, error) {
	if data.Rows() == 0 {
		return nil, nil, ErrEmptyData
	}
	layout := data.Layout()
	cs, err := allocCoreset(ctx, c, layout, data.Width())
	if err != nil {
		return nil, nil, err
	}

	copy(cs.Points.Local(), data.Local())
	if weights != nil {
		copy(cs.Weights.Local(), weights.Local())
	} else {
		cs.Weights.Fill(1)
	}
	owned := data.Owned()
	indices := cs.Indices.Local()
	for j := range indices {
		indices[j] = owned.Start + j
	}
	localWeight := floats.Sum(cs.Weights.Local())

	if err := cs.Points.Fence(ctx); err != nil {
		return nil, nil, err
	}
	total, err := rma.AllreduceSum(ctx, c, localWeight)
	if err != nil {
		return nil, nil, err
	}
	return cs, &Stats{Size: layout.Rows(), PerRank: layout.Counts(), TotalWeight: total}, nil
}

func allocCoreset(ctx context.Context, c *rma.Comm, layout partition.Layout, dim int) (*Coreset, error) {
	points, err := rma.NewWindow[float64](ctx, c, "coreset.points", layout, dim)
	if err != nil {
		return nil, err
	}
	weights, err := rma.NewWindow[float64](ctx, c, "coreset.weights", layout, 1)
	if err != nil {
		return nil, err
	}
	indices, err := rma.NewWindow[int](ctx, c, "coreset.indices", layout, 1)
	if err != nil {
		return nil, err
	}
	return &Coreset{Points: points, Weights: weights, Indices: indices}, nil
}

// RankSeed derives the sampling seed of a rank from the run seed.
func RankSeed(seed int64, rank int) int64 {
	const golden = 0x9E3779B97F4A7C15 >> 1
	return seed + int64(rank+1)*golden
}
