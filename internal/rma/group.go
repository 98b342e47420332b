package rma

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/coreset/resource"
)

// ErrAborted is returned by collectives once the group has failed.
var ErrAborted = errors.New("rma: group aborted")

// Group is a fixed set of ranks that execute one function collectively.
type Group struct {
	size   int
	rc     *resource.Controller
	logger *slog.Logger
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithResourceController accounts window memory against rc.
func WithResourceController(rc *resource.Controller) GroupOption {
	return func(g *Group) {
		g.rc = rc
	}
}

// WithLogger sets the logger handed to each rank.
func WithLogger(l *slog.Logger) GroupOption {
	return func(g *Group) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGroup creates a group of size ranks.
func NewGroup(size int, optFns ...GroupOption) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("rma: group size must be positive, got %d", size)
	}
	g := &Group{
		size:   size,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(g)
		}
	}
	return g, nil
}

// Size returns the number of ranks.
func (g *Group) Size() int { return g.size }

// Run executes fn once per rank and waits for all ranks to return.
//
// Windows still open when Run returns are released exactly once. The
// returned error combines the failures of all ranks; peers that only
// observed the abort are not reported separately.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, c *Comm) error) error {
	r := &runState{
		size:  g.size,
		bar:   newBarrier(g.size),
		slots: make([]any, g.size),
		rc:    g.rc,
	}
	defer r.releaseAll()

	eg, egCtx := errgroup.WithContext(ctx)
	errs := make([]error, g.size)

	for rank := 0; rank < g.size; rank++ {
		eg.Go(func() error {
			c := &Comm{
				run:    r,
				rank:   rank,
				logger: g.logger.With("rank", rank),
			}
			err := fn(egCtx, c)
			errs[rank] = err
			return err
		})
	}
	_ = eg.Wait()

	return combineErrors(errs)
}

func combineErrors(errs []error) error {
	rootCause := false
	for _, err := range errs {
		if err != nil && !errors.Is(err, ErrAborted) {
			rootCause = true
			break
		}
	}

	var merr *multierror.Error
	for rank, err := range errs {
		if err == nil {
			continue
		}
		if rootCause && errors.Is(err, ErrAborted) {
			continue
		}
		merr = multierror.Append(merr, fmt.Errorf("rank %d: %w", rank, err))
	}

	if merr == nil {
		return nil
	}
	if len(merr.Errors) == 1 {
		return merr.Errors[0]
	}
	return merr
}

// runState is shared by all ranks of one Run.
type runState struct {
	size  int
	bar   *barrier
	slots []any
	rc    *resource.Controller

	mu      sync.Mutex
	windows []releaser
}

type releaser interface {
	release()
}

func (r *runState) register(w releaser) {
	r.mu.Lock()
	r.windows = append(r.windows, w)
	r.mu.Unlock()
}

func (r *runState) releaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.windows {
		w.release()
	}
	r.windows = nil
}

// barrier is a reusable rendezvous for a fixed number of parties.
type barrier struct {
	mu      sync.Mutex
	parties int
	arrived int
	release chan struct{}
}

func newBarrier(parties int) *barrier {
	return &barrier{
		parties: parties,
		release: make(chan struct{}),
	}
}

func (b *barrier) wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return aborted(ctx)
	}

	b.mu.Lock()
	ch := b.release
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.release = make(chan struct{})
		b.mu.Unlock()
		close(ch)
		return nil
	}
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return aborted(ctx)
	}
}

func aborted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))
}
