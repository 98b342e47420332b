package coreset

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/coreset/dataset"
	"github.com/hupe1980/coreset/distance"
	"github.com/hupe1980/coreset/internal/kmeans"
	"github.com/hupe1980/coreset/internal/partition"
	"github.com/hupe1980/coreset/internal/rma"
	"github.com/hupe1980/coreset/internal/sampling"
	"github.com/hupe1980/coreset/resource"
)

// Clusterer runs distributed k-means, optionally on a coreset.
//
// Setters and fits are serialized; a Clusterer may be shared between
// goroutines.
type Clusterer struct {
	mu sync.Mutex

	numClusters   int
	numRestarts   int
	numWorkers    int
	sampleSize    int
	fallback      bool
	maxIterations int
	dist          distance.Func
	seed          int64
	initial       [][]float64

	metrics MetricsCollector
	logger  *Logger
	rc      *resource.Controller

	result  *Result
	coreset *Coreset
}

// New creates a Clusterer. Invalid options are reported as configuration
// errors.
func New(optFns ...Option) (*Clusterer, error) {
	o := applyOptions(optFns)

	dist := o.distance
	if dist == nil {
		var err error
		if dist, err = distance.Provider(o.metric); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDistance, err)
		}
	}

	c := &Clusterer{
		fallback: o.fallback,
		dist:     dist,
		seed:     o.seed,
		initial:  o.initial,
		metrics:  o.metricsCollector,
		logger:   o.logger,
		rc:       o.rc,
	}
	if err := c.SetNumClusters(o.numClusters); err != nil {
		return nil, err
	}
	if err := c.SetNumRestarts(o.numRestarts); err != nil {
		return nil, err
	}
	if err := c.SetNumWorkers(o.numWorkers); err != nil {
		return nil, err
	}
	if err := c.SetMaxIterations(o.maxIterations); err != nil {
		return nil, err
	}
	if o.sampleSize != 0 {
		if err := c.SetSampleSize(o.sampleSize); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetNumClusters sets K. Non-positive values are rejected and leave the
// Clusterer unchanged.
func (c *Clusterer) SetNumClusters(k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNumClusters, k)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.numClusters = k
	return nil
}

// SetNumRestarts sets the number of restarts. Non-positive values are
// rejected and leave the Clusterer unchanged.
func (c *Clusterer) SetNumRestarts(r int) error {
	if r <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNumRestarts, r)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.numRestarts = r
	return nil
}

// SetNumWorkers sets the group size. Non-positive values are rejected.
func (c *Clusterer) SetNumWorkers(p int) error {
	if p <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNumWorkers, p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.numWorkers = p
	return nil
}

// SetSampleSize sets the coreset size. Non-positive values are rejected.
func (c *Clusterer) SetSampleSize(m int) error {
	if m <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleSize, m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sampleSize = m
	return nil
}

// SetMaxIterations sets the iteration budget. Non-positive values are rejected.
func (c *Clusterer) SetMaxIterations(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxIterations, n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxIterations = n
	return nil
}

// NumClusters returns K.
func (c *Clusterer) NumClusters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numClusters
}

// NumRestarts returns the number of restarts.
func (c *Clusterer) NumRestarts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numRestarts
}

// NumWorkers returns the group size.
func (c *Clusterer) NumWorkers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numWorkers
}

// SampleSize returns the coreset size, or 0 if unset.
func (c *Clusterer) SampleSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleSize
}

// MaxIterations returns the iteration budget.
func (c *Clusterer) MaxIterations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxIterations
}

// Result returns the result of the last successful fit, or nil.
func (c *Clusterer) Result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Coreset returns the coreset of the last FitCoreset or BuildCoreset, or nil.
func (c *Clusterer) Coreset() *Coreset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coreset
}

// Predict returns the cluster of the last result nearest to point.
func (c *Clusterer) Predict(point []float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return -1, ErrNotFitted
	}
	dim := len(c.result.Centroids[0])
	if len(point) != dim {
		return -1, &PreconditionError{Check: CheckPointDimension, Expected: dim, Actual: len(point)}
	}
	best, _ := kmeans.Nearest(point, flatten(c.result.Centroids), dim, c.dist)
	return best, nil
}

// Fit clusters the full dataset.
func (c *Clusterer) Fit(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	res, err := c.fit(ctx, ds)
	c.finishFit(ctx, ds, start, err)
	if err != nil {
		return nil, err
	}
	c.result = res
	return res, nil
}

// FitCoreset builds a coreset, clusters it and assigns the full dataset to
// the resulting centroids.
func (c *Clusterer) FitCoreset(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	res, cs, err := c.fitCoreset(ctx, ds)
	c.finishFit(ctx, ds, start, err)
	if err != nil {
		return nil, err
	}
	c.result = res
	c.coreset = cs
	return res, nil
}

// BuildCoreset samples a coreset of the configured size without clustering.
func (c *Clusterer) BuildCoreset(ctx context.Context, ds *dataset.Dataset) (*Coreset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkDataset(ds, 1); err != nil {
		return nil, err
	}
	size, err := c.coresetSize(ds)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	seed := c.runSeed()
	var cs *Coreset
	err = c.run(ctx, func(ctx context.Context, comm *rma.Comm) error {
		data, weights, err := loadDataset(ctx, comm, ds)
		if err != nil {
			return err
		}
		sample, stats, err := c.sample(ctx, comm, data, weights, size, seed)
		if err != nil {
			return err
		}
		if comm.Rank() == 0 {
			if cs, err = gatherCoreset(sample, stats, ds.NumFeatures()); err != nil {
				return err
			}
		}
		if err := sample.Free(ctx); err != nil {
			return err
		}
		return freeDataset(ctx, data, weights)
	})
	c.finishCoreset(ctx, ds, size, cs, start, err)
	if err != nil {
		return nil, err
	}
	c.coreset = cs
	return cs, nil
}

func (c *Clusterer) fit(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	if err := c.checkDataset(ds, c.numClusters); err != nil {
		return nil, err
	}
	cfg, err := c.kmeansConfig(ctx, ds.NumFeatures())
	if err != nil {
		return nil, err
	}

	var out *kmeans.Outcome
	err = c.run(ctx, func(ctx context.Context, comm *rma.Comm) error {
		data, weights, err := loadDataset(ctx, comm, ds)
		if err != nil {
			return err
		}
		o, err := kmeans.Run(ctx, comm, data, weights, cfg)
		if err != nil {
			return err
		}
		if comm.Rank() == 0 {
			out = o
		}
		return freeDataset(ctx, data, weights)
	})
	if err != nil {
		return nil, err
	}

	if len(out.Assignments) != ds.Len() {
		return nil, &PreconditionError{Check: CheckAssignmentLength, Expected: ds.Len(), Actual: len(out.Assignments)}
	}
	return newResult(out, ds.NumFeatures()), nil
}

func (c *Clusterer) fitCoreset(ctx context.Context, ds *dataset.Dataset) (*Result, *Coreset, error) {
	if err := c.checkDataset(ds, c.numClusters); err != nil {
		return nil, nil, err
	}
	size, err := c.coresetSize(ds)
	if err != nil {
		return nil, nil, err
	}
	if size < c.numClusters {
		return nil, nil, &PreconditionError{Check: CheckCoresetTooFewPoints, Expected: c.numClusters, Actual: size}
	}
	cfg, err := c.kmeansConfig(ctx, ds.NumFeatures())
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	seed := cfg.Seed
	var (
		out  *kmeans.Outcome
		proj *kmeans.Projection
		cs   *Coreset
	)
	err = c.run(ctx, func(ctx context.Context, comm *rma.Comm) error {
		data, weights, err := loadDataset(ctx, comm, ds)
		if err != nil {
			return err
		}
		sample, stats, err := c.sample(ctx, comm, data, weights, size, seed)
		if err != nil {
			return err
		}
		if comm.Rank() == 0 {
			if cs, err = gatherCoreset(sample, stats, ds.NumFeatures()); err != nil {
				return err
			}
		}

		points, pointWeights, err := redistribute(ctx, comm, sample)
		if err != nil {
			return err
		}
		if err := sample.Free(ctx); err != nil {
			return err
		}

		o, err := kmeans.Run(ctx, comm, points, pointWeights, cfg)
		if err != nil {
			return err
		}
		if err := freeDataset(ctx, points, pointWeights); err != nil {
			return err
		}

		p, err := kmeans.Project(ctx, comm, data, weights, o.Centroids, cfg.Distance)
		if err != nil {
			return err
		}
		if comm.Rank() == 0 {
			out, proj = o, p
		}
		return freeDataset(ctx, data, weights)
	})
	c.finishCoreset(ctx, ds, size, cs, start, err)
	if err != nil {
		return nil, nil, err
	}

	if len(proj.Assignments) != ds.Len() {
		return nil, nil, &PreconditionError{Check: CheckAssignmentLength, Expected: ds.Len(), Actual: len(proj.Assignments)}
	}
	res := newResult(out, ds.NumFeatures())
	res.Assignments = proj.Assignments
	res.Counts = proj.Counts
	res.DatasetError = proj.Error
	return res, cs, nil
}

// run executes fn on every rank of a fresh group.
func (c *Clusterer) run(ctx context.Context, fn func(ctx context.Context, comm *rma.Comm) error) error {
	g, err := rma.NewGroup(c.numWorkers,
		rma.WithResourceController(c.rc),
		rma.WithLogger(c.logger.Logger),
	)
	if err != nil {
		return err
	}
	return translateError(g.Run(ctx, fn))
}

func (c *Clusterer) sample(ctx context.Context, comm *rma.Comm, data, weights *rma.Window[float64], size int, seed int64) (*sampling.Coreset, *sampling.Stats, error) {
	if size >= data.Rows() {
		return sampling.Full(ctx, comm, data, weights)
	}
	rng := rand.New(rand.NewSource(sampling.RankSeed(seed, comm.Rank())))
	return sampling.Sample(ctx, comm, data, weights, size, c.dist, rng)
}

func (c *Clusterer) checkDataset(ds *dataset.Dataset, k int) error {
	if ds == nil || ds.Len() == 0 {
		return &PreconditionError{Check: CheckDatasetShape, Expected: 1, Actual: 0}
	}
	if ds.NumFeatures() <= 0 {
		return &PreconditionError{Check: CheckNumFeatures, Expected: 1, Actual: ds.NumFeatures()}
	}
	if got, want := len(ds.Data()), ds.Len()*ds.NumFeatures(); got != want {
		return &PreconditionError{Check: CheckDatasetShape, Expected: want, Actual: got}
	}
	if ds.Len() < k {
		return &PreconditionError{Check: CheckTooFewPoints, Expected: k, Actual: ds.Len()}
	}
	return checkRowCount(ds.Len())
}

// MaxPoints is the largest number of dataset rows a Clusterer accepts.
// Member and source sets index rows as uint32.
const MaxPoints int64 = 1 << 32

func checkRowCount(n int) error {
	if limit := MaxPoints; int64(n) > limit {
		return &PreconditionError{Check: CheckTooManyPoints, Expected: int(limit), Actual: n}
	}
	return nil
}

func (c *Clusterer) coresetSize(ds *dataset.Dataset) (int, error) {
	if c.sampleSize <= 0 {
		return 0, fmt.Errorf("%w: sample size not configured", ErrInvalidSampleSize)
	}
	if c.sampleSize >= ds.Len() {
		if !c.fallback {
			return 0, fmt.Errorf("%w: %d >= %d", ErrSampleSizeExceedsData, c.sampleSize, ds.Len())
		}
		return ds.Len(), nil
	}
	return c.sampleSize, nil
}

func (c *Clusterer) kmeansConfig(ctx context.Context, dim int) (kmeans.Config, error) {
	cfg := kmeans.Config{
		K:             c.numClusters,
		Restarts:      c.numRestarts,
		MaxIterations: c.maxIterations,
		Distance:      c.dist,
		Seed:          c.runSeed(),
		OnRestart: func(st kmeans.Stats) {
			c.logger.LogRestart(ctx, st.Restart, st.Iterations, st.Error, st.Converged)
			c.metrics.RecordRestart(st.Iterations, st.Error, st.Converged, st.Duration)
		},
	}

	if c.initial != nil {
		if len(c.initial) != c.numClusters {
			return cfg, &PreconditionError{Check: CheckInitialCentroids, Expected: c.numClusters, Actual: len(c.initial)}
		}
		for _, ctr := range c.initial {
			if len(ctr) != dim {
				return cfg, &PreconditionError{Check: CheckInitialDimension, Expected: dim, Actual: len(ctr)}
			}
		}
		cfg.Initial = flatten(c.initial)
	}
	return cfg, nil
}

func (c *Clusterer) runSeed() int64 {
	if c.seed != 0 {
		return c.seed
	}
	return time.Now().UnixNano()
}

func (c *Clusterer) finishFit(ctx context.Context, ds *dataset.Dataset, start time.Time, err error) {
	duration := time.Since(start)
	points := 0
	if ds != nil {
		points = ds.Len()
	}
	c.logger.LogFit(ctx, points, c.numClusters, c.numWorkers, duration, err)
	c.metrics.RecordFit(c.numWorkers, duration, err)
}

func (c *Clusterer) finishCoreset(ctx context.Context, ds *dataset.Dataset, size int, cs *Coreset, start time.Time, err error) {
	var total float64
	if cs != nil {
		total = cs.TotalWeight
	}
	c.logger.LogCoreset(ctx, ds.Len(), size, total, err)
	c.metrics.RecordCoreset(size, time.Since(start), err)
}

// loadDataset copies each rank's slice of ds into fresh windows.
func loadDataset(ctx context.Context, comm *rma.Comm, ds *dataset.Dataset) (*rma.Window[float64], *rma.Window[float64], error) {
	layout, err := partition.New(ds.Len(), comm.Size())
	if err != nil {
		return nil, nil, err
	}
	data, err := rma.NewWindow[float64](ctx, comm, "data", layout, ds.NumFeatures())
	if err != nil {
		return nil, nil, err
	}
	owned := data.Owned()
	data.PutRange(owned.Start, ds.Rows(owned.Start, owned.End))

	var weights *rma.Window[float64]
	if ds.Weighted() {
		if weights, err = rma.NewWindow[float64](ctx, comm, "weights", layout, 1); err != nil {
			return nil, nil, err
		}
		weights.PutRange(owned.Start, ds.Weights()[owned.Start:owned.End])
	}

	if err := data.Fence(ctx); err != nil {
		return nil, nil, err
	}
	return data, weights, nil
}

func freeDataset(ctx context.Context, data, weights *rma.Window[float64]) error {
	if weights != nil {
		if err := weights.Free(ctx); err != nil {
			return err
		}
	}
	return data.Free(ctx)
}

// redistribute moves the coreset rows into an even layout over the group
// with one-sided reads.
func redistribute(ctx context.Context, comm *rma.Comm, cs *sampling.Coreset) (*rma.Window[float64], *rma.Window[float64], error) {
	layout, err := partition.New(cs.Len(), comm.Size())
	if err != nil {
		return nil, nil, err
	}
	points, err := rma.NewWindow[float64](ctx, comm, "coreset.data", layout, cs.Points.Width())
	if err != nil {
		return nil, nil, err
	}
	weights, err := rma.NewWindow[float64](ctx, comm, "coreset.data.weights", layout, 1)
	if err != nil {
		return nil, nil, err
	}

	owned := points.Owned()
	cs.Points.GetRange(owned.Start, owned.End, points.Local())
	cs.Weights.GetRange(owned.Start, owned.End, weights.Local())

	if err := points.Fence(ctx); err != nil {
		return nil, nil, err
	}
	return points, weights, nil
}

func gatherCoreset(cs *sampling.Coreset, stats *sampling.Stats, dim int) (*Coreset, error) {
	points, weights, indices := cs.Gather()
	ds, err := dataset.NewWeighted(points, len(indices), dim, weights)
	if err != nil {
		return nil, err
	}
	return &Coreset{
		Points:      ds,
		Indices:     indices,
		PerWorker:   stats.PerRank,
		TotalWeight: stats.TotalWeight,
	}, nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
