package resource

import (
	"context"
	"io"
)

// LimitedReader throttles reads through a Controller.
type LimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
}

// NewLimitedReader wraps r so that every read waits for IO budget.
func NewLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *LimitedReader {
	return &LimitedReader{ctx: ctx, r: r, rc: rc}
}

func (r *LimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.rc.WaitIO(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
