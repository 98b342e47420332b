package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/coreset/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpan(t *testing.T) {
	tests := []struct {
		name        string
		off, length int64
		start, end  int64
		wantErr     bool
	}{
		{name: "inside", off: 2, length: 3, start: 2, end: 4},
		{name: "clamped", off: 8, length: 5, start: 8, end: 9},
		{name: "past end", off: 10, length: 1, wantErr: true},
		{name: "negative", off: -1, length: 1, wantErr: true},
		{name: "empty", off: 0, length: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := span(tt.off, tt.length, 10)
			if tt.wantErr {
				assert.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestStore_KeyMapping(t *testing.T) {
	s := NewStore(nil, "bucket", "/runs/")
	assert.Equal(t, "runs/a/points.bin", s.key("a/points.bin"))
	assert.Equal(t, "a/points.bin", s.name("runs/a/points.bin"))

	bare := NewStore(nil, "bucket", "")
	assert.Equal(t, "points.bin", bare.key("points.bin"))
	assert.Equal(t, "points.bin", bare.name("points.bin"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

// TestStore_Integration needs a running MinIO; set MINIO_ENDPOINT to enable it.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}

	ctx := context.Background()
	store, err := Dial(endpoint, "minioadmin", "minioadmin", false, "coreset-test", "it/")
	require.NoError(t, err)

	exists, err := store.client.BucketExists(ctx, store.bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, store.bucket, minio.MakeBucketOptions{}))
	}

	require.NoError(t, store.Put(ctx, "points.txt", []byte("1 2\n3 4\n")))

	w, err := store.Create(ctx, "clusters.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("2\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "points.txt")
	assert.Contains(t, names, "clusters.txt")

	data, err := blobstore.ReadAll(ctx, store, "points.txt")
	require.NoError(t, err)
	assert.Equal(t, "1 2\n3 4\n", string(data))

	require.NoError(t, store.Delete(ctx, "points.txt"))
	require.NoError(t, store.Delete(ctx, "clusters.txt"))

	_, err = store.Open(ctx, "points.txt")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
