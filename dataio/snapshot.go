package dataio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/coreset"
)

var snapshotMagic = [4]byte{'C', 'S', 'N', 'P'}

const (
	snapshotVersion    = 1
	snapshotHeaderSize = 8
	// fixed payload fields: k, dim, n, error, dataset error, restart
	snapshotFixedSize = 4 + 4 + 8 + 8 + 8 + 4
)

// EncodeSnapshot serializes the centroids, counts, assignments and objective
// of res. Per-restart statistics are not part of a snapshot.
func EncodeSnapshot(res *coreset.Result, c Compression) ([]byte, error) {
	k := res.K()
	dim := 0
	if k > 0 {
		dim = len(res.Centroids[0])
	}
	if len(res.Counts) != k {
		return nil, fmt.Errorf("%w: %d counts for %d clusters", ErrMalformed, len(res.Counts), k)
	}

	n := len(res.Assignments)
	p := make([]byte, 0, snapshotFixedSize+8*k*dim+8*k+4*n)
	p = binary.LittleEndian.AppendUint32(p, uint32(k))
	p = binary.LittleEndian.AppendUint32(p, uint32(dim))
	p = binary.LittleEndian.AppendUint64(p, uint64(n))
	p = binary.LittleEndian.AppendUint64(p, math.Float64bits(res.Error))
	p = binary.LittleEndian.AppendUint64(p, math.Float64bits(res.DatasetError))
	p = binary.LittleEndian.AppendUint32(p, uint32(res.Restart))
	for i, ctr := range res.Centroids {
		if len(ctr) != dim {
			return nil, fmt.Errorf("%w: centroid %d has %d features, want %d", ErrMalformed, i, len(ctr), dim)
		}
		for _, v := range ctr {
			p = binary.LittleEndian.AppendUint64(p, math.Float64bits(v))
		}
	}
	for _, cnt := range res.Counts {
		p = binary.LittleEndian.AppendUint64(p, uint64(cnt))
	}
	for _, a := range res.Assignments {
		p = binary.LittleEndian.AppendUint32(p, uint32(a))
	}

	block, err := compressBlock(p, c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, snapshotHeaderSize+len(block))
	out = append(out, snapshotMagic[:]...)
	out = append(out, snapshotVersion, byte(c), 0, 0)
	return append(out, block...), nil
}

// DecodeSnapshot restores a result written by EncodeSnapshot.
func DecodeSnapshot(b []byte) (*coreset.Result, error) {
	if len(b) < snapshotHeaderSize || [4]byte(b[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: not a snapshot", ErrMalformed)
	}
	if b[4] != snapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d", ErrMalformed, b[4])
	}

	c := Compression(b[5])
	if c > CompressionZSTD {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}

	p, err := decompressBlock(b[snapshotHeaderSize:], c)
	if err != nil {
		return nil, err
	}
	if len(p) < snapshotFixedSize {
		return nil, fmt.Errorf("%w: short snapshot", ErrMalformed)
	}

	k := int(binary.LittleEndian.Uint32(p[0:]))
	dim := int(binary.LittleEndian.Uint32(p[4:]))
	n := binary.LittleEndian.Uint64(p[8:])
	res := &coreset.Result{
		Error:        math.Float64frombits(binary.LittleEndian.Uint64(p[16:])),
		DatasetError: math.Float64frombits(binary.LittleEndian.Uint64(p[24:])),
		Restart:      int(int32(binary.LittleEndian.Uint32(p[32:]))),
	}
	p = p[snapshotFixedSize:]

	if n > uint64(len(p))/4 || uint64(len(p)) != uint64(8*k*dim+8*k)+4*n {
		return nil, fmt.Errorf("%w: snapshot body size", ErrMalformed)
	}

	res.Centroids = make([][]float64, k)
	flat := make([]float64, k*dim)
	for i := range flat {
		flat[i] = math.Float64frombits(binary.LittleEndian.Uint64(p[8*i:]))
	}
	for i := range res.Centroids {
		res.Centroids[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	p = p[8*k*dim:]

	res.Counts = make([]int, k)
	for i := range res.Counts {
		res.Counts[i] = int(binary.LittleEndian.Uint64(p[8*i:]))
	}
	p = p[8*k:]

	res.Assignments = make([]int, n)
	for i := range res.Assignments {
		a := int(binary.LittleEndian.Uint32(p[4*i:]))
		if a >= k {
			return nil, fmt.Errorf("%w: assignment %d out of range", ErrMalformed, i)
		}
		res.Assignments[i] = a
	}

	return res, nil
}
