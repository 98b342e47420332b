package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ds, err := New([]float64{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 2, ds.NumFeatures())
	assert.Equal(t, []float64{3, 4}, ds.Row(1))
	assert.Equal(t, []float64{3, 4, 5, 6}, ds.Rows(1, 3))
	assert.False(t, ds.Weighted())
	assert.Equal(t, 1.0, ds.Weight(2))
}

func TestNew_InvalidShape(t *testing.T) {
	_, err := New([]float64{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = New(nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestFromRows(t *testing.T) {
	ds, err := FromRows([][]float64{{0, 0}, {2, 4}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, ds.Mean())

	_, err = FromRows([][]float64{{0, 0}, {1}})
	assert.ErrorIs(t, err, ErrRaggedRows)
}

func TestNewWeighted(t *testing.T) {
	ds, err := NewWeighted([]float64{0, 10}, 2, 1, []float64{3, 1})
	require.NoError(t, err)
	assert.True(t, ds.Weighted())
	assert.InDelta(t, 2.5, ds.Mean()[0], 1e-12)

	_, err = NewWeighted([]float64{0, 10}, 2, 1, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidShape)
}
