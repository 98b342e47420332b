package dataio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/coreset/dataset"
)

func grid(t *testing.T, n, f int) *dataset.Dataset {
	t.Helper()
	data := make([]float64, n*f)
	for i := range data {
		data[i] = float64(i) / 4
	}
	ds, err := dataset.New(data, n, f)
	require.NoError(t, err)
	return ds
}

func TestBinary(t *testing.T) {
	ds := grid(t, 5000, 3)
	enc := EncodeBinary(ds)
	require.Len(t, enc, headerSize+8*5000*3)
	assert.Equal(t, uint64(5000), binary.LittleEndian.Uint64(enc[0:]))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(enc[8:]))

	got, err := ReadBinary(bytes.NewReader(enc))
	require.NoError(t, err)
	assert.Equal(t, 5000, got.Len())
	assert.Equal(t, 3, got.NumFeatures())
	assert.Equal(t, ds.Data(), got.Data())
}

func TestReadBinary_Malformed(t *testing.T) {
	enc := EncodeBinary(grid(t, 4, 2))

	_, err := ReadBinary(bytes.NewReader(enc[:10]))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ReadBinary(bytes.NewReader(enc[:len(enc)-1]))
	assert.ErrorIs(t, err, ErrMalformed)

	zero := append([]byte(nil), enc...)
	binary.LittleEndian.PutUint64(zero[8:], 0)
	_, err = ReadBinary(bytes.NewReader(zero))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOpenMapped(t *testing.T) {
	ds := grid(t, 100, 4)
	path := filepath.Join(t.TempDir(), "points.bin")
	require.NoError(t, os.WriteFile(path, EncodeBinary(ds), 0o644))

	m, err := OpenMapped(path)
	require.NoError(t, err)

	assert.Equal(t, 100, m.Len())
	assert.Equal(t, 4, m.NumFeatures())
	assert.Equal(t, ds.Row(42), m.Row(42))
	assert.Equal(t, ds.Data(), m.Data())
	require.NoError(t, m.Close())
}

func TestOpenMapped_Truncated(t *testing.T) {
	enc := EncodeBinary(grid(t, 10, 2))
	path := filepath.Join(t.TempDir(), "points.bin")
	require.NoError(t, os.WriteFile(path, enc[:len(enc)-8], 0o644))

	_, err := OpenMapped(path)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOpenMapped_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.bin")
	require.NoError(t, os.WriteFile(path, appendHeader(nil, 0, 3), 0o644))

	m, err := OpenMapped(path)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 3, m.NumFeatures())
}
