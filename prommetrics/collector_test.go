package prommetrics

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/coreset"
	"github.com/hupe1980/coreset/dataset"
)

func TestCollector_Records(t *testing.T) {
	c := New(prometheus.NewRegistry(), "coreset")

	c.RecordFit(4, time.Second, nil)
	c.RecordFit(4, time.Second, errors.New("boom"))
	c.RecordRestart(7, 12.5, true, time.Millisecond)
	c.RecordCoreset(100, time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.FitTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FitTotal.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Workers))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RestartTotal.WithLabelValues("true")))
	assert.Equal(t, 12.5, testutil.ToFloat64(c.RestartError))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.CoresetSize))
}

func TestCollector_WithClusterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	mc := New(reg, "coreset")

	rng := rand.New(rand.NewSource(1))
	data := make([]float64, 2*40)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	ds, err := dataset.New(data, 40, 2)
	require.NoError(t, err)

	c, err := coreset.New(
		coreset.WithNumClusters(2),
		coreset.WithNumRestarts(3),
		coreset.WithNumWorkers(2),
		coreset.WithSeed(1),
		coreset.WithMetricsCollector(mc),
	)
	require.NoError(t, err)

	_, err = c.Fit(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(mc.FitTotal.WithLabelValues("success")))
	restarts := testutil.ToFloat64(mc.RestartTotal.WithLabelValues("true")) +
		testutil.ToFloat64(mc.RestartTotal.WithLabelValues("false"))
	assert.Equal(t, 3.0, restarts)

	n, err := testutil.GatherAndCount(reg, "coreset_fit_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
