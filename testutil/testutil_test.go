package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Uniform(10, 3)
	rng.Reset()
	b := rng.Uniform(10, 3)

	assert.Equal(t, a.Data(), b.Data())
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestUniform(t *testing.T) {
	ds := NewRNG(1).Uniform(100, 4)
	require.Equal(t, 100, ds.Len())
	require.Equal(t, 4, ds.NumFeatures())
	for _, v := range ds.Data() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestBlobs(t *testing.T) {
	centers := [][]float64{{0, 0}, {100, 100}}
	ds := NewRNG(2).Blobs(centers, 50, 0.1)
	require.Equal(t, 100, ds.Len())

	labels := BlobLabels(2, 50)
	assign, sse := Assign(ds, centers)
	assert.Equal(t, labels, assign)
	assert.InDelta(t, SSE(ds, assign, centers), sse, 1e-9)
	assert.Equal(t, 1.0, Purity(assign, labels))
}

func TestPurity(t *testing.T) {
	assert.Equal(t, 0.75, Purity([]int{0, 0, 1, 1}, []int{5, 5, 5, 6}))
	assert.Equal(t, 0.0, Purity(nil, nil))
}

func TestWithOutliers(t *testing.T) {
	ds := NewRNG(3).Gaussian(10, 2)
	out := WithOutliers(ds, 2, 1000)
	require.Equal(t, 12, out.Len())
	assert.Equal(t, []float64{1000, 0}, out.Row(10))
	assert.Equal(t, []float64{0, 1000}, out.Row(11))
	assert.Equal(t, ds.Row(3), out.Row(3))
}
