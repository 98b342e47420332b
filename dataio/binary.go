package dataio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/coreset/dataset"
)

// headerSize is the length of the binary dataset header.
const headerSize = 16

func parseHeader(b []byte) (numPoints, numFeatures int, err error) {
	if len(b) < headerSize {
		return 0, 0, fmt.Errorf("%w: short header", ErrMalformed)
	}
	n := binary.LittleEndian.Uint64(b[0:])
	f := binary.LittleEndian.Uint64(b[8:])
	if f == 0 || f > math.MaxInt32 || n > math.MaxInt64/8/f {
		return 0, 0, fmt.Errorf("%w: shape %d x %d", ErrMalformed, n, f)
	}
	return int(n), int(f), nil
}

func appendHeader(b []byte, numPoints, numFeatures int) []byte {
	b = binary.LittleEndian.AppendUint64(b, uint64(numPoints))
	return binary.LittleEndian.AppendUint64(b, uint64(numFeatures))
}

// ReadBinary decodes a binary dataset.
func ReadBinary(r io.Reader) (*dataset.Dataset, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	n, f, err := parseHeader(hdr[:])
	if err != nil {
		return nil, err
	}

	data := make([]float64, n*f)
	buf := make([]byte, 8*4096)
	for i := 0; i < len(data); {
		chunk := min(len(data)-i, len(buf)/8)
		if _, err := io.ReadFull(r, buf[:chunk*8]); err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrMalformed, i, err)
		}
		for j := range chunk {
			data[i+j] = math.Float64frombits(binary.LittleEndian.Uint64(buf[j*8:]))
		}
		i += chunk
	}

	return dataset.New(data, n, f)
}

// EncodeBinary returns the binary encoding of ds. Weights are not encoded.
func EncodeBinary(ds *dataset.Dataset) []byte {
	out := make([]byte, 0, headerSize+8*len(ds.Data()))
	out = appendHeader(out, ds.Len(), ds.NumFeatures())
	for _, v := range ds.Data() {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

// WriteBinary writes the binary encoding of ds to w.
func WriteBinary(w io.Writer, ds *dataset.Dataset) error {
	_, err := w.Write(EncodeBinary(ds))
	return err
}
