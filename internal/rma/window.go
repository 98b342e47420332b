package rma

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/coreset/internal/partition"
)

// ErrWindowFreed is returned when a freed window is fenced or freed again.
var ErrWindowFreed = errors.New("rma: window already freed")

// windowState is the memory shared by all handles of one window.
type windowState[T any] struct {
	name   string
	layout partition.Layout
	width  int
	buf    []T
	bytes  int64

	accMu sync.Mutex

	freed       atomic.Bool
	releaseOnce sync.Once
	rc          releaseFunc
}

type releaseFunc func(bytes int64)

func (s *windowState[T]) release() {
	s.releaseOnce.Do(func() {
		if s.rc != nil {
			s.rc(s.bytes)
		}
	})
}

// Window is one rank's handle to a shared array of Rows x Width elements.
// Rows are distributed over ranks by a partition.Layout; each rank owns the
// rows of its range and is their only writer in a given epoch, except
// through Accumulate.
type Window[T any] struct {
	state *windowState[T]
	comm  *Comm
	epoch uint64
}

type windowInit[T any] struct {
	state *windowState[T]
	err   error
}

// NewWindow collectively creates a window. All ranks must call NewWindow
// with the same name, layout and width; rank 0 allocates the memory and
// the layout must have one part per rank.
func NewWindow[T any](ctx context.Context, c *Comm, name string, layout partition.Layout, width int) (*Window[T], error) {
	var init windowInit[T]
	if c.rank == 0 {
		init.state, init.err = allocWindow[T](c, name, layout, width)
	}

	init, err := Bcast(ctx, c, 0, init)
	if err != nil {
		return nil, err
	}
	if init.err != nil {
		return nil, init.err
	}

	return &Window[T]{state: init.state, comm: c}, nil
}

func allocWindow[T any](c *Comm, name string, layout partition.Layout, width int) (*windowState[T], error) {
	if layout.Parts() != c.Size() {
		return nil, fmt.Errorf("rma: window %q has %d parts for %d ranks", name, layout.Parts(), c.Size())
	}
	if width < 1 {
		return nil, fmt.Errorf("rma: window %q has invalid width %d", name, width)
	}

	var zero T
	n := layout.Rows() * width
	bytes := int64(n) * int64(unsafe.Sizeof(zero))

	if err := c.run.rc.Reserve(bytes); err != nil {
		return nil, fmt.Errorf("rma: window %q: %w", name, err)
	}

	s := &windowState[T]{
		name:   name,
		layout: layout,
		width:  width,
		buf:    make([]T, n),
		bytes:  bytes,
		rc:     c.run.rc.Release,
	}
	c.run.register(s)
	return s, nil
}

// Name returns the window name.
func (w *Window[T]) Name() string { return w.state.name }

// Rows returns the number of rows.
func (w *Window[T]) Rows() int { return w.state.layout.Rows() }

// Width returns the number of elements per row.
func (w *Window[T]) Width() int { return w.state.width }

// Layout returns the row ownership map.
func (w *Window[T]) Layout() partition.Layout { return w.state.layout }

// Owner returns the rank owning row.
func (w *Window[T]) Owner(row int) int { return w.state.layout.Owner(row) }

// Owned returns the rows owned by the caller.
func (w *Window[T]) Owned() partition.Range { return w.state.layout.Range(w.comm.rank) }

// Epoch returns the number of fences the caller has completed.
func (w *Window[T]) Epoch() uint64 { return w.epoch }

// Local returns the caller's owned rows as a writable slice.
func (w *Window[T]) Local() []T {
	r := w.Owned()
	return w.state.buf[r.Start*w.state.width : r.End*w.state.width]
}

// Fill sets every element of the caller's owned rows to v.
func (w *Window[T]) Fill(v T) {
	local := w.Local()
	for i := range local {
		local[i] = v
	}
}

// Get reads element i (row*Width + col) of any rank.
func (w *Window[T]) Get(i int) T {
	return w.state.buf[i]
}

// GetRow copies row into dst, growing dst if needed, and returns it.
func (w *Window[T]) GetRow(row int, dst []T) []T {
	width := w.state.width
	if cap(dst) < width {
		dst = make([]T, width)
	}
	dst = dst[:width]
	copy(dst, w.state.buf[row*width:(row+1)*width])
	return dst
}

// GetRange copies rows [start, end) into dst and returns it.
func (w *Window[T]) GetRange(start, end int, dst []T) []T {
	width := w.state.width
	n := (end - start) * width
	if cap(dst) < n {
		dst = make([]T, n)
	}
	dst = dst[:n]
	copy(dst, w.state.buf[start*width:end*width])
	return dst
}

// Put writes element i (row*Width + col).
func (w *Window[T]) Put(i int, v T) {
	w.state.buf[i] = v
}

// PutRow writes src into row.
func (w *Window[T]) PutRow(row int, src []T) {
	width := w.state.width
	copy(w.state.buf[row*width:(row+1)*width], src[:width])
}

// PutRange writes src into consecutive rows starting at start.
func (w *Window[T]) PutRange(start int, src []T) {
	width := w.state.width
	copy(w.state.buf[start*width:start*width+len(src)], src)
}

// Accumulate combines v into element i with op, atomically with respect to
// other Accumulate calls on the window. The result must not be read before
// the next fence.
func (w *Window[T]) Accumulate(i int, v T, op func(cur, v T) T) {
	w.state.accMu.Lock()
	w.state.buf[i] = op(w.state.buf[i], v)
	w.state.accMu.Unlock()
}

// Fence closes the current epoch. It blocks until every rank has fenced.
func (w *Window[T]) Fence(ctx context.Context) error {
	if w.state.freed.Load() {
		return fmt.Errorf("%w: %s", ErrWindowFreed, w.state.name)
	}
	if err := w.comm.Barrier(ctx); err != nil {
		return err
	}
	w.epoch++
	return nil
}

// Free collectively releases the window. Its memory reservation is returned
// exactly once, whichever rank gets there first.
func (w *Window[T]) Free(ctx context.Context) error {
	if w.state.freed.Load() {
		return fmt.Errorf("%w: %s", ErrWindowFreed, w.state.name)
	}
	if err := w.comm.Barrier(ctx); err != nil {
		return err
	}
	w.state.release()
	// Each rank stores after the barrier; a second Free fails on every rank
	// only once all ranks are past this point.
	w.state.freed.Store(true)
	return nil
}

// Sum is an Accumulate operator.
func Sum[T int | int32 | int64 | float64](cur, v T) T { return cur + v }
