package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is returned when the backing slice does not hold exactly
	// numPoints * numFeatures values.
	ErrInvalidShape = errors.New("dataset: invalid shape")
	// ErrRaggedRows is returned when rows passed to FromRows differ in length.
	ErrRaggedRows = errors.New("dataset: rows have different lengths")
)

// Dataset is an immutable row-major matrix of points.
type Dataset struct {
	data        []float64
	numPoints   int
	numFeatures int
	weights     []float64
}

// New wraps data as a dataset of numPoints rows with numFeatures columns.
// The slice is retained, not copied; callers must not modify it afterwards.
func New(data []float64, numPoints, numFeatures int) (*Dataset, error) {
	if numPoints < 0 || numFeatures <= 0 {
		return nil, fmt.Errorf("%w: %d points x %d features", ErrInvalidShape, numPoints, numFeatures)
	}
	if len(data) != numPoints*numFeatures {
		return nil, fmt.Errorf("%w: have %d values, want %d x %d", ErrInvalidShape, len(data), numPoints, numFeatures)
	}
	return &Dataset{data: data, numPoints: numPoints, numFeatures: numFeatures}, nil
}

// FromRows copies rows into a new dataset.
func FromRows(rows [][]float64) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidShape)
	}
	f := len(rows[0])
	data := make([]float64, 0, len(rows)*f)
	for i, r := range rows {
		if len(r) != f {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrRaggedRows, i, len(r), f)
		}
		data = append(data, r...)
	}
	return New(data, len(rows), f)
}

// NewWeighted returns a dataset whose points carry a positive weight each,
// as produced by coreset sampling.
func NewWeighted(data []float64, numPoints, numFeatures int, weights []float64) (*Dataset, error) {
	ds, err := New(data, numPoints, numFeatures)
	if err != nil {
		return nil, err
	}
	if len(weights) != numPoints {
		return nil, fmt.Errorf("%w: have %d weights, want %d", ErrInvalidShape, len(weights), numPoints)
	}
	ds.weights = weights
	return ds, nil
}

// Len returns the number of points.
func (d *Dataset) Len() int { return d.numPoints }

// NumFeatures returns the number of features per point.
func (d *Dataset) NumFeatures() int { return d.numFeatures }

// Row returns the features of point i. The slice aliases the dataset.
func (d *Dataset) Row(i int) []float64 {
	return d.data[i*d.numFeatures : (i+1)*d.numFeatures]
}

// Rows returns points [start, end) as one contiguous row-major slice.
func (d *Dataset) Rows(start, end int) []float64 {
	return d.data[start*d.numFeatures : end*d.numFeatures]
}

// Data returns the full row-major backing slice.
func (d *Dataset) Data() []float64 { return d.data }

// Weighted reports whether points carry explicit weights.
func (d *Dataset) Weighted() bool { return d.weights != nil }

// Weight returns the weight of point i (1 for unweighted datasets).
func (d *Dataset) Weight(i int) float64 {
	if d.weights == nil {
		return 1
	}
	return d.weights[i]
}

// Weights returns the explicit weights, or nil for an unweighted dataset.
func (d *Dataset) Weights() []float64 { return d.weights }

// Mean returns the (weighted) mean point.
func (d *Dataset) Mean() []float64 {
	mean := make([]float64, d.numFeatures)
	var total float64
	for i := 0; i < d.numPoints; i++ {
		w := d.Weight(i)
		row := d.Row(i)
		for j := range mean {
			mean[j] += w * row[j]
		}
		total += w
	}
	if total > 0 {
		for j := range mean {
			mean[j] /= total
		}
	}
	return mean
}
