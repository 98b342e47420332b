// Package rma implements the shared-state substrate of the clustering engine:
// a fixed group of cooperating ranks that communicate through one-sided
// windows and a handful of collectives.
//
// # Model
//
// A Group runs one function per rank. Each rank receives a *Comm that
// identifies it and gives access to the collectives:
//
//	g, _ := rma.NewGroup(4)
//	err := g.Run(ctx, func(ctx context.Context, c *rma.Comm) error {
//	    w, err := rma.NewWindow[int](ctx, c, "assign", layout, 1)
//	    ...
//	    for i := range w.Local() {
//	        w.Local()[i] = c.Rank()
//	    }
//	    if err := w.Fence(ctx); err != nil {
//	        return err
//	    }
//	    v := w.Get(anyIndex) // safe: written before the fence
//	    return w.Free(ctx)
//	})
//
// # Epochs
//
// Writes to a window (Put, PutRow, Local, Accumulate) become visible to other
// ranks only after every rank has passed the next Fence. Reading an element
// another rank writes in the same epoch is a data race. Fence, Barrier and all
// collectives are blocking calls every rank must make in the same order.
//
// # Failure
//
// When a rank returns an error or the context is cancelled, every blocked or
// subsequent collective returns ErrAborted and Run reports the root cause.
// There is no timeout: a rank that never reaches a fence blocks its peers
// until the context is cancelled.
package rma
