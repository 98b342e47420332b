package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/coreset/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("S3_BUCKET not set")
	}

	ctx := context.Background()
	store, err := New(ctx, bucket, WithPrefix(fmt.Sprintf("coreset-test-%d/", time.Now().UnixNano())))
	require.NoError(t, err)

	data := make([]byte, 1<<20)
	_, _ = rand.Read(data)

	w, err := store.Create(ctx, "snapshot.bin")
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "snapshot.bin")

	b, err := store.Open(ctx, "snapshot.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 100)
	_, err = b.ReadAt(ctx, buf, 1024)
	require.NoError(t, err)
	assert.Equal(t, data[1024:1124], buf)
	require.NoError(t, b.Close())

	require.NoError(t, store.Delete(ctx, "snapshot.bin"))

	_, err = store.Open(ctx, "snapshot.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
