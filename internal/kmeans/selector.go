package kmeans

import (
	"context"
	"math"

	"github.com/hupe1980/coreset/internal/rma"
)

// Candidate identifies a clustering by its error and origin.
type Candidate struct {
	Error   float64
	Restart int
	Rank    int
}

// Less orders candidates by error, then restart, then rank. NaN errors sort
// last.
func (a Candidate) Less(b Candidate) bool {
	an, bn := math.IsNaN(a.Error), math.IsNaN(b.Error)
	switch {
	case an != bn:
		return bn
	case !an && a.Error != b.Error:
		return a.Error < b.Error
	case a.Restart != b.Restart:
		return a.Restart < b.Restart
	default:
		return a.Rank < b.Rank
	}
}

// Best tracks the lowest candidate seen.
type Best struct {
	cand Candidate
	ok   bool
}

// Offer records c if it is strictly better than the current best and
// reports whether it was recorded.
func (b *Best) Offer(c Candidate) bool {
	if b.ok && !c.Less(b.cand) {
		return false
	}
	b.cand = c
	b.ok = true
	return true
}

// Candidate returns the best candidate, if any was offered.
func (b *Best) Candidate() (Candidate, bool) { return b.cand, b.ok }

// ReduceBest returns the global minimum of the ranks' candidates.
func ReduceBest(ctx context.Context, c *rma.Comm, local Candidate) (Candidate, error) {
	all, err := rma.Allgather(ctx, c, local)
	if err != nil {
		return Candidate{}, err
	}
	best := all[0]
	for _, cand := range all[1:] {
		if cand.Less(best) {
			best = cand
		}
	}
	return best, nil
}
