package rma

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
)

// Comm is the per-rank handle into a running group.
type Comm struct {
	run    *runState
	rank   int
	logger *slog.Logger
}

// Rank returns the rank of the caller, in [0, Size()).
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the group.
func (c *Comm) Size() int { return c.run.size }

// Logger returns a logger tagged with the caller's rank.
func (c *Comm) Logger() *slog.Logger { return c.logger }

// Barrier blocks until every rank has called Barrier.
// All writes made before the barrier are visible to every rank after it.
func (c *Comm) Barrier(ctx context.Context) error {
	return c.run.bar.wait(ctx)
}

// exchange publishes v and returns the values published by all ranks,
// indexed by rank.
func (c *Comm) exchange(ctx context.Context, v any) ([]any, error) {
	c.run.slots[c.rank] = v
	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	out := make([]any, c.run.size)
	copy(out, c.run.slots)
	// Slots are reused by the next collective.
	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Allgather returns every rank's v, indexed by rank.
func Allgather[T any](ctx context.Context, c *Comm, v T) ([]T, error) {
	vals, err := c.exchange(ctx, v)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(vals))
	for i, x := range vals {
		out[i], _ = x.(T)
	}
	return out, nil
}

// Bcast returns root's v on every rank.
func Bcast[T any](ctx context.Context, c *Comm, root int, v T) (T, error) {
	var zero T
	if root < 0 || root >= c.Size() {
		return zero, fmt.Errorf("rma: broadcast root %d out of range", root)
	}
	var payload any
	if c.rank == root {
		payload = v
	}
	vals, err := c.exchange(ctx, payload)
	if err != nil {
		return zero, err
	}
	out, _ := vals[root].(T)
	return out, nil
}

// AllreduceSum returns the sum of v over all ranks.
// Terms are added in rank order, so every rank computes the identical value.
func AllreduceSum(ctx context.Context, c *Comm, v float64) (float64, error) {
	vals, err := Allgather(ctx, c, v)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, x := range vals {
		sum += x
	}
	return sum, nil
}

// AllreduceSums returns the element-wise sum of v over all ranks.
// Every rank must pass a slice of the same length.
func AllreduceSums(ctx context.Context, c *Comm, v []float64) ([]float64, error) {
	vals, err := Allgather(ctx, c, v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for rank, x := range vals {
		if len(x) != len(out) {
			return nil, fmt.Errorf("rma: rank %d reduced %d values, want %d", rank, len(x), len(out))
		}
		floats.Add(out, x)
	}
	return out, nil
}

// AllreduceSumInt returns the sum of v over all ranks.
func AllreduceSumInt(ctx context.Context, c *Comm, v int) (int, error) {
	vals, err := Allgather(ctx, c, v)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, x := range vals {
		sum += x
	}
	return sum, nil
}
