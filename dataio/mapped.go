package dataio

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/hupe1980/coreset/dataset"
	"github.com/hupe1980/coreset/internal/mmap"
)

var littleEndianHost = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// Mapped is a binary dataset backed by a memory-mapped file.
type Mapped struct {
	*dataset.Dataset
	file *mmap.File
}

// OpenMapped maps a binary dataset file. On little-endian hosts the values
// are used in place; the dataset is valid until Close.
func OpenMapped(path string) (*Mapped, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	ds, err := mappedDataset(f.Bytes())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("dataio: %s: %w", path, err)
	}
	_ = f.Advise(mmap.AccessSequential)

	return &Mapped{Dataset: ds, file: f}, nil
}

func mappedDataset(b []byte) (*dataset.Dataset, error) {
	n, f, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	body := b[headerSize:]
	if len(body) != n*f*8 {
		return nil, fmt.Errorf("%w: have %d value bytes, want %d", ErrMalformed, len(body), n*f*8)
	}
	if n == 0 {
		return dataset.New(nil, 0, f)
	}

	var data []float64
	if littleEndianHost {
		data = unsafe.Slice((*float64)(unsafe.Pointer(&body[0])), n*f)
	} else {
		data = make([]float64, n*f)
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[i*8:]))
		}
	}
	return dataset.New(data, n, f)
}

// Close unmaps the file. The dataset must not be used afterwards.
func (m *Mapped) Close() error {
	return m.file.Close()
}
