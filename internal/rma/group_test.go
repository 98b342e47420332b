package rma

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGroup_Invalid(t *testing.T) {
	_, err := NewGroup(0)
	assert.Error(t, err)
}

func TestGroup_RunAllRanks(t *testing.T) {
	g, err := NewGroup(4)
	require.NoError(t, err)

	var seen [4]atomic.Bool
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		assert.Equal(t, 4, c.Size())
		seen[c.Rank()].Store(true)
		return c.Barrier(ctx)
	})
	require.NoError(t, err)

	for i := range seen {
		assert.True(t, seen[i].Load(), "rank %d did not run", i)
	}
}

func TestGroup_BarrierOrdersWrites(t *testing.T) {
	g, err := NewGroup(3)
	require.NoError(t, err)

	shared := make([]int, 3)
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		for round := 1; round <= 20; round++ {
			shared[c.Rank()] = round * (c.Rank() + 1)
			if err := c.Barrier(ctx); err != nil {
				return err
			}
			for r := range shared {
				if shared[r] != round*(r+1) {
					return errors.New("stale read after barrier")
				}
			}
			if err := c.Barrier(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestGroup_FailureAbortsPeers(t *testing.T) {
	g, err := NewGroup(3)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		if c.Rank() == 1 {
			return boom
		}
		// Blocks forever unless the failure of rank 1 aborts the barrier.
		return c.Barrier(ctx)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rank 1")
}

func TestGroup_MultipleFailuresCombined(t *testing.T) {
	g, err := NewGroup(2)
	require.NoError(t, err)

	errA := errors.New("a")
	errB := errors.New("b")
	err = g.Run(context.Background(), func(_ context.Context, c *Comm) error {
		if c.Rank() == 0 {
			return errA
		}
		return errB
	})

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestGroup_ContextCancel(t *testing.T) {
	g, err := NewGroup(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = g.Run(ctx, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 0 {
			<-ctx.Done()
			return nil
		}
		return c.Barrier(ctx)
	})

	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCollectives(t *testing.T) {
	g, err := NewGroup(4)
	require.NoError(t, err)

	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		sum, err := AllreduceSum(ctx, c, float64(c.Rank()+1))
		if err != nil {
			return err
		}
		assert.Equal(t, 10.0, sum)

		n, err := AllreduceSumInt(ctx, c, c.Rank())
		if err != nil {
			return err
		}
		assert.Equal(t, 6, n)

		sums, err := AllreduceSums(ctx, c, []float64{1, float64(c.Rank())})
		if err != nil {
			return err
		}
		assert.Equal(t, []float64{4, 6}, sums)

		all, err := Allgather(ctx, c, c.Rank()*10)
		if err != nil {
			return err
		}
		assert.Equal(t, []int{0, 10, 20, 30}, all)

		v, err := Bcast(ctx, c, 2, "from-"+string(rune('a'+c.Rank())))
		if err != nil {
			return err
		}
		assert.Equal(t, "from-c", v)

		_, err = Bcast(ctx, c, 9, 0)
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestSingleRankGroup(t *testing.T) {
	g, err := NewGroup(1)
	require.NoError(t, err)

	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		sum, err := AllreduceSum(ctx, c, 2.5)
		if err != nil {
			return err
		}
		assert.Equal(t, 2.5, sum)
		return c.Barrier(ctx)
	})
	require.NoError(t, err)
}
