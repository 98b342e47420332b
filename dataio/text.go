package dataio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hupe1980/coreset/dataset"
)

// ErrMalformed is returned when input does not match the expected encoding.
var ErrMalformed = errors.New("dataio: malformed input")

// ReadText parses numPoints x numFeatures whitespace separated values.
// With numPoints <= 0 every value up to EOF is read and the row count is
// derived from numFeatures.
func ReadText(r io.Reader, numPoints, numFeatures int) (*dataset.Dataset, error) {
	if numFeatures <= 0 {
		return nil, fmt.Errorf("%w: %d features", ErrMalformed, numFeatures)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	want := numPoints * numFeatures
	data := make([]float64, 0, max(want, 0))
	for sc.Scan() {
		if numPoints > 0 && len(data) == want {
			return nil, fmt.Errorf("%w: more than %d values", ErrMalformed, want)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrMalformed, len(data), err)
		}
		data = append(data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if numPoints <= 0 {
		if len(data)%numFeatures != 0 {
			return nil, fmt.Errorf("%w: %d values do not fill rows of %d", ErrMalformed, len(data), numFeatures)
		}
		numPoints = len(data) / numFeatures
	} else if len(data) != want {
		return nil, fmt.Errorf("%w: have %d values, want %d", ErrMalformed, len(data), want)
	}

	return dataset.New(data, numPoints, numFeatures)
}

// WriteText writes rows of width values, one row per line.
func WriteText(w io.Writer, values []float64, width int) error {
	if width <= 0 || len(values)%width != 0 {
		return fmt.Errorf("%w: %d values in rows of %d", ErrMalformed, len(values), width)
	}
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for i, v := range values {
		buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
		if (i+1)%width == 0 {
			buf = append(buf, '\n')
		} else {
			buf = append(buf, ' ')
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteInts writes one integer per line.
func WriteInts(w io.Writer, values []int) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 24)
	for _, v := range values {
		buf = strconv.AppendInt(buf[:0], int64(v), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
