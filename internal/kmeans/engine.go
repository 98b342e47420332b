package kmeans

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hupe1980/coreset/internal/partition"
	"github.com/hupe1980/coreset/internal/rma"
)

type engine struct {
	c      *rma.Comm
	cfg    Config
	logger *slog.Logger

	k   int
	dim int

	data    *rma.Window[float64]
	weights *rma.Window[float64]

	assign    *rma.Window[int]
	centroids *rma.Window[float64]
	counts    *rma.Window[int64]
	partials  *rma.Window[float64]

	// rng drives collective draws; only rank 0's stream is consumed.
	rng *rand.Rand

	cent    []float64 // centroid cache, refreshed after each centroid fence
	minDist []float64 // k-means++ scratch, one per local point
}

type snapshot struct {
	assign    []int
	centroids []float64
	counts    []int
}

func newEngine(ctx context.Context, c *rma.Comm, data, weights *rma.Window[float64], cfg Config) (*engine, error) {
	e := &engine{
		c:       c,
		cfg:     cfg,
		logger:  c.Logger(),
		k:       cfg.K,
		dim:     data.Width(),
		data:    data,
		weights: weights,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		cent:    make([]float64, cfg.K*data.Width()),
		minDist: make([]float64, data.Owned().Len()),
	}

	clusters, err := partition.New(cfg.K, c.Size())
	if err != nil {
		return nil, err
	}
	ranks, err := partition.New(c.Size(), c.Size())
	if err != nil {
		return nil, err
	}

	if e.assign, err = rma.NewWindow[int](ctx, c, "assign", data.Layout(), 1); err != nil {
		return nil, err
	}
	if e.centroids, err = rma.NewWindow[float64](ctx, c, "centroids", clusters, e.dim); err != nil {
		return nil, err
	}
	if e.counts, err = rma.NewWindow[int64](ctx, c, "counts", clusters, 1); err != nil {
		return nil, err
	}
	if e.partials, err = rma.NewWindow[float64](ctx, c, "partials", ranks, e.k*e.dim+e.k); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *engine) free(ctx context.Context) error {
	if err := e.partials.Free(ctx); err != nil {
		return err
	}
	if err := e.counts.Free(ctx); err != nil {
		return err
	}
	if err := e.centroids.Free(ctx); err != nil {
		return err
	}
	return e.assign.Free(ctx)
}

// weight returns the weight of local point i.
func (e *engine) weight(i int) float64 {
	if e.weights == nil {
		return 1
	}
	return e.weights.Local()[i]
}

func (e *engine) point(i int) []float64 {
	return e.data.Local()[i*e.dim : (i+1)*e.dim]
}

func (e *engine) localLen() int { return e.data.Owned().Len() }

func (e *engine) refreshCentroids() {
	e.cent = e.centroids.GetRange(0, e.k, e.cent)
}

// restart runs one seeding plus Lloyd iterations on the shared windows.
func (e *engine) restart(ctx context.Context, r int) (Stats, error) {
	start := time.Now()
	st := Stats{Restart: r}

	// Peers may still be reading the previous restart's state.
	if err := e.assign.Fence(ctx); err != nil {
		return st, err
	}
	e.assign.Fill(-1)
	e.counts.Fill(0)
	if err := e.assign.Fence(ctx); err != nil {
		return st, err
	}

	if err := e.seed(ctx, r); err != nil {
		return st, err
	}

	// An iteration is an assignment plus an update. Once the budget is
	// spent, a final assignment aligns assignments, counts and error with
	// the returned centroids.
	for it := 0; ; it++ {
		sse, changed, err := e.assignStep(ctx)
		if err != nil {
			return st, err
		}
		st.Error = sse
		st.Trace = append(st.Trace, sse)

		e.logger.Debug("assignment phase", "restart", r, "iteration", it, "error", sse, "changed", changed)

		if changed == 0 {
			st.Converged = true
			break
		}
		if it >= e.cfg.MaxIterations {
			break
		}
		if err := e.updateStep(ctx); err != nil {
			return st, err
		}
		st.Iterations = it + 1
	}

	for k := 0; k < e.k; k++ {
		if e.counts.Get(k) == 0 {
			st.EmptyClusters++
		}
	}
	st.Duration = time.Since(start)
	return st, nil
}

// snapshot copies the caller's assignments and the shared cluster state.
func (e *engine) snapshot(s *snapshot) {
	s.assign = append(s.assign[:0], e.assign.Local()...)
	s.centroids = e.centroids.GetRange(0, e.k, s.centroids)
	counts := e.counts.GetRange(0, e.k, nil)
	s.counts = s.counts[:0]
	for _, n := range counts {
		s.counts = append(s.counts, int(n))
	}
}
