package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte("1.5 2.5\n3.5 4.5\n")

			w, err := store.Create(ctx, "runs/a/points.txt")
			require.NoError(t, err)
			n, err := w.Write(data)
			require.NoError(t, err)
			require.Equal(t, len(data), n)
			require.NoError(t, w.Sync())
			require.NoError(t, w.Close())

			_, err = w.Write(data)
			assert.ErrorIs(t, err, ErrClosed)

			blob, err := store.Open(ctx, "runs/a/points.txt")
			require.NoError(t, err)
			defer blob.Close()
			require.Equal(t, int64(len(data)), blob.Size())

			buf := make([]byte, 3)
			n, err = blob.ReadAt(ctx, buf, 8)
			require.NoError(t, err)
			assert.Equal(t, "3.5", string(buf[:n]))

			r, err := blob.ReadRange(ctx, 12, 100)
			require.NoError(t, err)
			tail, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, "4.5\n", string(tail))

			_, err = blob.ReadRange(ctx, 100, 1)
			assert.ErrorIs(t, err, io.EOF)

			require.NoError(t, store.Put(ctx, "runs/a/clusters.txt", []byte("2")))
			require.NoError(t, store.Put(ctx, "runs/b/clusters.txt", []byte("3")))

			names, err := store.List(ctx, "runs/a/")
			require.NoError(t, err)
			assert.Equal(t, []string{"runs/a/clusters.txt", "runs/a/points.txt"}, names)

			require.NoError(t, store.Delete(ctx, "runs/a/points.txt"))
			require.NoError(t, store.Delete(ctx, "runs/a/points.txt"))

			_, err = store.Open(ctx, "runs/a/points.txt")
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"runs/a/clusters.txt", "runs/b/clusters.txt"}, all)
		})
	}
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	payload := bytes.Repeat([]byte("0123456789"), 1000)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "blob", payload))
			got, err := ReadAll(ctx, store, "blob")
			require.NoError(t, err)
			assert.Equal(t, payload, got)

			require.NoError(t, store.Put(ctx, "empty", nil))
			got, err = ReadAll(ctx, store, "empty")
			require.NoError(t, err)
			assert.Empty(t, got)

			_, err = ReadAll(ctx, store, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestNewReader(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	payload := bytes.Repeat([]byte("abc"), 100)
	require.NoError(t, store.Put(ctx, "blob", payload))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)

	got, err := io.ReadAll(NewReader(ctx, blob))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestMemoryStore_PutCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "blob", data))
	data[0] = 'x'

	got, err := ReadAll(ctx, store, "blob")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestLocalStore_Mappable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir)
	require.NoError(t, store.Put(ctx, "points.bin", []byte{1, 2, 3}))

	_, err := os.Stat(filepath.Join(dir, "points.bin"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, "points.bin")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Put(ctx, "blob", []byte("x")), context.Canceled)
			_, err := store.Open(ctx, "blob")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}
