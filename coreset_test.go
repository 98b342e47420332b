package coreset

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/coreset/dataset"
	"github.com/hupe1980/coreset/distance"
	"github.com/hupe1980/coreset/resource"
)

// blobs returns n points around each center with unit gaussian noise.
func blobs(t *testing.T, seed int64, n int, centers ...[2]float64) *dataset.Dataset {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, 0, 2*n*len(centers))
	for _, c := range centers {
		for i := 0; i < n; i++ {
			data = append(data, c[0]+rng.NormFloat64(), c[1]+rng.NormFloat64())
		}
	}
	ds, err := dataset.New(data, n*len(centers), 2)
	require.NoError(t, err)
	return ds
}

func TestNew_Defaults(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	assert.Equal(t, DefaultNumClusters, c.NumClusters())
	assert.Equal(t, DefaultNumRestarts, c.NumRestarts())
	assert.Equal(t, DefaultNumWorkers, c.NumWorkers())
	assert.Equal(t, DefaultMaxIterations, c.MaxIterations())
	assert.Zero(t, c.SampleSize())
	assert.Nil(t, c.Result())
	assert.Nil(t, c.Coreset())
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		opt    Option
		target error
	}{
		{"clusters", WithNumClusters(0), ErrInvalidNumClusters},
		{"restarts", WithNumRestarts(-1), ErrInvalidNumRestarts},
		{"workers", WithNumWorkers(0), ErrInvalidNumWorkers},
		{"sample size", WithSampleSize(-5), ErrInvalidSampleSize},
		{"iterations", WithMaxIterations(0), ErrInvalidMaxIterations},
		{"metric", WithMetric(42), ErrInvalidDistance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestSetters_RejectNonPositive(t *testing.T) {
	c, err := New(WithNumClusters(3), WithNumRestarts(2), WithNumWorkers(2), WithSampleSize(10))
	require.NoError(t, err)

	assert.ErrorIs(t, c.SetNumClusters(0), ErrInvalidNumClusters)
	assert.ErrorIs(t, c.SetNumClusters(-2), ErrInvalidNumClusters)
	assert.ErrorIs(t, c.SetNumRestarts(0), ErrInvalidNumRestarts)
	assert.ErrorIs(t, c.SetNumWorkers(0), ErrInvalidNumWorkers)
	assert.ErrorIs(t, c.SetSampleSize(0), ErrInvalidSampleSize)
	assert.ErrorIs(t, c.SetMaxIterations(-1), ErrInvalidMaxIterations)

	assert.Equal(t, 3, c.NumClusters())
	assert.Equal(t, 2, c.NumRestarts())
	assert.Equal(t, 2, c.NumWorkers())
	assert.Equal(t, 10, c.SampleSize())

	require.NoError(t, c.SetNumClusters(5))
	require.NoError(t, c.SetNumRestarts(1))
	assert.Equal(t, 5, c.NumClusters())
	assert.Equal(t, 1, c.NumRestarts())
}

func TestFit_TwoClusters(t *testing.T) {
	ds := blobs(t, 1, 50, [2]float64{0, 0}, [2]float64{100, 100})

	c, err := New(WithNumClusters(2), WithNumRestarts(3), WithNumWorkers(4), WithSeed(42))
	require.NoError(t, err)

	res, err := c.Fit(context.Background(), ds)
	require.NoError(t, err)
	require.Same(t, res, c.Result())

	require.Len(t, res.Assignments, 100)
	require.Equal(t, 2, res.K())

	low, high := res.Assignments[0], res.Assignments[50]
	require.NotEqual(t, low, high)
	for i := 0; i < 50; i++ {
		assert.Equal(t, low, res.Assignments[i])
		assert.Equal(t, high, res.Assignments[50+i])
	}
	assert.Equal(t, []int{50, 50}, res.Counts)

	assert.InDelta(t, 0, res.Centroids[low][0], 0.5)
	assert.InDelta(t, 0, res.Centroids[low][1], 0.5)
	assert.InDelta(t, 100, res.Centroids[high][0], 0.5)
	assert.InDelta(t, 100, res.Centroids[high][1], 0.5)

	// Near zero relative to the spread of the data.
	assert.Less(t, res.Error/100, 4.0)
	assert.Equal(t, res.Error, res.DatasetError)
}

func TestFit_SingleCluster(t *testing.T) {
	ds := blobs(t, 2, 20, [2]float64{-5, 2}, [2]float64{7, 7}, [2]float64{3, -9})

	c, err := New(WithNumClusters(1), WithNumRestarts(2), WithNumWorkers(3), WithSeed(1))
	require.NoError(t, err)

	res, err := c.Fit(context.Background(), ds)
	require.NoError(t, err)

	assert.InDeltaSlice(t, ds.Mean(), res.Centroids[0], 1e-9)
	assert.Equal(t, []int{60}, res.Counts)
	for _, a := range res.Assignments {
		assert.Zero(t, a)
	}
}

func TestFit_BestIsMinimumRestart(t *testing.T) {
	ds := blobs(t, 3, 30, [2]float64{0, 0}, [2]float64{6, 0}, [2]float64{3, 5}, [2]float64{9, 6})

	c, err := New(WithNumClusters(5), WithNumRestarts(6), WithNumWorkers(3), WithSeed(8))
	require.NoError(t, err)

	res, err := c.Fit(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, res.Restarts, 6)
	best := res.Restarts[0]
	for _, st := range res.Restarts {
		if st.Error < best.Error {
			best = st
		}
		for i := 1; i < len(st.Trace); i++ {
			assert.LessOrEqual(t, st.Trace[i], st.Trace[i-1]+1e-9)
		}
	}
	assert.Equal(t, best.Error, res.Error)
	assert.Equal(t, best.Restart, res.Restart)

	seen := make(map[int]bool)
	for i, a := range res.Assignments {
		assert.True(t, a >= 0 && a < 5, "point %d assigned to %d", i, a)
		seen[i] = true
	}
	assert.Len(t, seen, ds.Len())
}

func TestFit_Deterministic(t *testing.T) {
	ds := blobs(t, 4, 40, [2]float64{0, 0}, [2]float64{4, 4}, [2]float64{8, 0})

	fit := func() *Result {
		c, err := New(WithNumClusters(3), WithNumRestarts(3), WithNumWorkers(2), WithSeed(77))
		require.NoError(t, err)
		res, err := c.Fit(context.Background(), ds)
		require.NoError(t, err)
		return res
	}

	a, b := fit(), fit()
	assert.Equal(t, a.Assignments, b.Assignments)
	assert.Equal(t, a.Centroids, b.Centroids)
	assert.Equal(t, a.Counts, b.Counts)
	assert.Equal(t, a.Error, b.Error)
}

func TestFit_MoreWorkersThanPoints(t *testing.T) {
	ds, err := dataset.FromRows([][]float64{{1, 1}, {2, 2}, {3, 3}})
	require.NoError(t, err)

	c, err := New(WithNumClusters(1), WithNumRestarts(1), WithNumWorkers(5), WithSeed(1))
	require.NoError(t, err)

	res, err := c.Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 2}, res.Centroids[0], 1e-12)
	assert.Equal(t, []int{0, 0, 0}, res.Assignments)
}

func TestFit_Preconditions(t *testing.T) {
	ds := blobs(t, 5, 2, [2]float64{0, 0})

	tests := []struct {
		name  string
		opts  []Option
		check string
	}{
		{"too few points", []Option{WithNumClusters(3)}, CheckTooFewPoints},
		{"initial count", []Option{WithNumClusters(2), WithInitialCentroids([][]float64{{0, 0}})}, CheckInitialCentroids},
		{"initial dimension", []Option{WithNumClusters(1), WithInitialCentroids([][]float64{{0, 0, 0}})}, CheckInitialDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts...)
			require.NoError(t, err)

			_, err = c.Fit(context.Background(), ds)
			require.ErrorIs(t, err, ErrPrecondition)

			var pe *PreconditionError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.check, pe.Check)
			assert.Nil(t, c.Result())
		})
	}

	c, err := New()
	require.NoError(t, err)
	_, err = c.Fit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestCheckRowCount(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("row counts above MaxPoints need 64-bit ints")
	}
	limit := MaxPoints

	require.NoError(t, checkRowCount(int(limit)))

	err := checkRowCount(int(limit) + 1)
	require.ErrorIs(t, err, ErrPrecondition)
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CheckTooManyPoints, pe.Check)
}

func TestFit_SingleClusterOneIteration(t *testing.T) {
	ds, err := dataset.FromRows([][]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}})
	require.NoError(t, err)

	c, err := New(WithNumClusters(1), WithMaxIterations(1), WithSeed(3))
	require.NoError(t, err)

	res, err := c.Fit(context.Background(), ds)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{5, 5}, res.Centroids[0], 1e-12)
	assert.Equal(t, []int{4}, res.Counts)
	assert.InDelta(t, 200.0, res.Error, 1e-9)
	assert.Equal(t, 1, res.Restarts[0].Iterations)
}

func TestFit_InitialCentroids(t *testing.T) {
	ds := blobs(t, 6, 20, [2]float64{0, 0}, [2]float64{50, 0})

	c, err := New(
		WithNumClusters(2),
		WithNumRestarts(1),
		WithNumWorkers(2),
		WithInitialCentroids([][]float64{{50, 0}, {0, 0}}),
	)
	require.NoError(t, err)

	res, err := c.Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assignments[0])
	assert.Equal(t, 0, res.Assignments[20])
}

func TestFit_MemoryLimit(t *testing.T) {
	ds := blobs(t, 7, 100, [2]float64{0, 0})
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 512})

	c, err := New(WithNumClusters(2), WithResourceController(rc))
	require.NoError(t, err)

	_, err = c.Fit(context.Background(), ds)
	assert.ErrorIs(t, err, resource.ErrMemoryLimit)
	assert.Zero(t, rc.MemoryUsage())
}

func TestFit_ContextCancelled(t *testing.T) {
	ds := blobs(t, 8, 10, [2]float64{0, 0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := New(WithNumClusters(2), WithNumWorkers(2))
	require.NoError(t, err)

	_, err = c.Fit(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitCoreset(t *testing.T) {
	ds := blobs(t, 9, 200, [2]float64{0, 0}, [2]float64{100, 100})

	c, err := New(
		WithNumClusters(2),
		WithNumRestarts(2),
		WithNumWorkers(3),
		WithSampleSize(60),
		WithSeed(5),
	)
	require.NoError(t, err)

	res, err := c.FitCoreset(context.Background(), ds)
	require.NoError(t, err)

	cs := c.Coreset()
	require.NotNil(t, cs)
	assert.Equal(t, 60, cs.Len())
	assert.Len(t, cs.Indices, 60)
	assert.Equal(t, 60, sum(cs.PerWorker))
	assert.InEpsilon(t, 400, cs.TotalWeight, 0.1)
	for _, w := range cs.Points.Weights() {
		assert.Greater(t, w, 0.0)
	}

	require.Len(t, res.Assignments, 400)
	assert.Equal(t, 400, sum(res.Counts))

	low, high := res.Assignments[0], res.Assignments[200]
	require.NotEqual(t, low, high)
	assert.InDelta(t, 0, res.Centroids[low][0], 1.5)
	assert.InDelta(t, 100, res.Centroids[high][1], 1.5)
	for i := 0; i < 200; i++ {
		assert.Equal(t, low, res.Assignments[i])
		assert.Equal(t, high, res.Assignments[200+i])
	}
	assert.Less(t, res.DatasetError/400, 6.0)
}

func TestFitCoreset_FullDatasetFallback(t *testing.T) {
	ds := blobs(t, 10, 15, [2]float64{0, 0}, [2]float64{10, 10})
	opts := []Option{WithNumClusters(2), WithNumRestarts(2), WithNumWorkers(2), WithSeed(3)}

	plain, err := New(opts...)
	require.NoError(t, err)
	want, err := plain.Fit(context.Background(), ds)
	require.NoError(t, err)

	c, err := New(append(opts, WithSampleSize(100))...)
	require.NoError(t, err)
	got, err := c.FitCoreset(context.Background(), ds)
	require.NoError(t, err)

	cs := c.Coreset()
	assert.Equal(t, ds.Len(), cs.Len())
	assert.Equal(t, 30.0, cs.TotalWeight)
	assert.Equal(t, uint64(30), cs.Sources().GetCardinality())

	assert.Equal(t, want.Assignments, got.Assignments)
	assert.Equal(t, want.Centroids, got.Centroids)
	assert.InDelta(t, want.Error, got.Error, 1e-9)
	assert.InDelta(t, got.Error, got.DatasetError, 1e-9)
}

func TestFitCoreset_WeightedDatasetError(t *testing.T) {
	base := blobs(t, 12, 20, [2]float64{0, 0}, [2]float64{10, 10})
	weights := make([]float64, base.Len())
	for i := range weights {
		weights[i] = float64(1 + i%3)
	}
	ds, err := dataset.NewWeighted(base.Data(), base.Len(), 2, weights)
	require.NoError(t, err)

	c, err := New(WithNumClusters(2), WithNumWorkers(3), WithSampleSize(15), WithSeed(4))
	require.NoError(t, err)

	res, err := c.FitCoreset(context.Background(), ds)
	require.NoError(t, err)

	var want float64
	for i, a := range res.Assignments {
		want += ds.Weight(i) * distance.SquaredEuclidean(ds.Row(i), res.Centroids[a])
	}
	assert.InEpsilon(t, want, res.DatasetError, 1e-9)
}

func TestFitCoreset_ConfigurationErrors(t *testing.T) {
	ds := blobs(t, 11, 10, [2]float64{0, 0})

	c, err := New(WithNumClusters(2))
	require.NoError(t, err)
	_, err = c.FitCoreset(context.Background(), ds)
	assert.ErrorIs(t, err, ErrInvalidSampleSize)

	c, err = New(WithNumClusters(2), WithSampleSize(10), WithFullDatasetFallback(false))
	require.NoError(t, err)
	_, err = c.FitCoreset(context.Background(), ds)
	assert.ErrorIs(t, err, ErrSampleSizeExceedsData)

	c, err = New(WithNumClusters(4), WithSampleSize(3))
	require.NoError(t, err)
	_, err = c.FitCoreset(context.Background(), ds)
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CheckCoresetTooFewPoints, pe.Check)
}

func TestBuildCoreset(t *testing.T) {
	ds := blobs(t, 12, 100, [2]float64{0, 0}, [2]float64{20, 0})

	c, err := New(WithNumWorkers(4), WithSampleSize(25), WithSeed(9))
	require.NoError(t, err)

	cs, err := c.BuildCoreset(context.Background(), ds)
	require.NoError(t, err)
	require.Same(t, cs, c.Coreset())
	assert.Nil(t, c.Result())

	assert.Equal(t, 25, cs.Len())
	assert.Equal(t, 2, cs.Points.NumFeatures())
	assert.True(t, cs.Points.Weighted())

	for j, idx := range cs.Indices {
		require.True(t, idx >= 0 && idx < ds.Len())
		assert.Equal(t, ds.Row(idx), cs.Points.Row(j))
	}
	assert.LessOrEqual(t, cs.Sources().GetCardinality(), uint64(25))
}

func TestResult_MembersAndClone(t *testing.T) {
	res := &Result{
		Assignments: []int{0, 1, 1, 0, 1},
		Centroids:   [][]float64{{0, 0}, {1, 1}},
		Counts:      []int{2, 3},
		Restarts:    []RestartStats{{Trace: []float64{3, 2}}},
	}

	assert.Equal(t, []uint32{0, 3}, res.Members(0).ToArray())
	assert.Equal(t, []uint32{1, 2, 4}, res.Members(1).ToArray())
	assert.True(t, res.Members(2).IsEmpty())

	clone := res.Clone()
	require.Equal(t, res, clone)
	clone.Centroids[0][0] = 9
	clone.Restarts[0].Trace[0] = 9
	clone.Assignments[0] = 1
	assert.Equal(t, 0.0, res.Centroids[0][0])
	assert.Equal(t, 3.0, res.Restarts[0].Trace[0])
	assert.Equal(t, 0, res.Assignments[0])
}

func TestPredict(t *testing.T) {
	c, err := New(WithNumClusters(2), WithSeed(1))
	require.NoError(t, err)

	_, err = c.Predict([]float64{0, 0})
	assert.ErrorIs(t, err, ErrNotFitted)

	ds := blobs(t, 13, 20, [2]float64{0, 0}, [2]float64{30, 30})
	res, err := c.Fit(context.Background(), ds)
	require.NoError(t, err)

	k, err := c.Predict([]float64{29, 31})
	require.NoError(t, err)
	assert.Equal(t, res.Assignments[20], k)

	_, err = c.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestMetricsCollector(t *testing.T) {
	ds := blobs(t, 14, 20, [2]float64{0, 0}, [2]float64{10, 10})
	mc := &BasicMetricsCollector{}

	c, err := New(WithNumClusters(2), WithNumRestarts(3), WithSampleSize(10), WithMetricsCollector(mc), WithSeed(2))
	require.NoError(t, err)

	_, err = c.Fit(context.Background(), ds)
	require.NoError(t, err)
	_, err = c.FitCoreset(context.Background(), ds)
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.FitCount)
	assert.Zero(t, stats.FitErrors)
	assert.Equal(t, int64(6), stats.RestartCount)
	assert.Equal(t, int64(1), stats.CoresetCount)
	assert.Equal(t, int64(10), stats.CoresetPoints)
}

func sum(xs []int) int {
	var total int
	for _, x := range xs {
		total += x
	}
	return total
}
