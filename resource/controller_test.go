package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.Reserve(50))
	require.NoError(t, c.Reserve(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	err := c.Reserve(20)
	assert.ErrorIs(t, err, ErrMemoryLimit)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.Release(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.Reserve(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(90), c.PeakMemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.Reserve(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.Release(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	ctx := context.Background()

	assert.NoError(t, c.Reserve(1<<40))
	c.Release(1 << 40)
	assert.Zero(t, c.MemoryUsage())
	assert.NoError(t, c.AcquireTransfer(ctx))
	c.ReleaseTransfer()
	assert.NoError(t, c.WaitIO(ctx, 1<<20))
}

func TestController_Transfers(t *testing.T) {
	c := NewController(Config{MaxConcurrentTransfers: 1})
	ctx := context.Background()

	require.NoError(t, c.AcquireTransfer(ctx))

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireTransfer(timeout), context.DeadlineExceeded)

	c.ReleaseTransfer()
	require.NoError(t, c.AcquireTransfer(ctx))
	c.ReleaseTransfer()
}

func TestLimitedReader(t *testing.T) {
	c := NewController(Config{IOBytesPerSec: 1 << 20})
	src := bytes.Repeat([]byte("x"), 4096)

	got, err := io.ReadAll(NewLimitedReader(context.Background(), bytes.NewReader(src), c))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}
