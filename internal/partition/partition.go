// Package partition computes the contiguous row ownership map shared by all
// ranks of a process group.
package partition

import (
	"fmt"
	"sort"
)

// Range is a half-open row interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether row lies in the range.
func (r Range) Contains(row int) bool { return row >= r.Start && row < r.End }

// Layout maps rows to owning parts. Ranges are disjoint, contiguous and cover
// [0, Rows). Part sizes differ by at most one; the remainder rows go to the
// lowest-numbered parts.
type Layout struct {
	rows   int
	ranges []Range
}

// New computes the layout of rows over parts.
func New(rows, parts int) (Layout, error) {
	if rows < 0 {
		return Layout{}, fmt.Errorf("partition: negative row count %d", rows)
	}
	if parts < 1 {
		return Layout{}, fmt.Errorf("partition: part count must be positive, got %d", parts)
	}

	base := rows / parts
	rem := rows % parts

	ranges := make([]Range, parts)
	start := 0
	for p := 0; p < parts; p++ {
		n := base
		if p < rem {
			n++
		}
		ranges[p] = Range{Start: start, End: start + n}
		start += n
	}

	return Layout{rows: rows, ranges: ranges}, nil
}

// Weighted computes a layout with explicit per-part row counts.
func Weighted(counts []int) (Layout, error) {
	if len(counts) == 0 {
		return Layout{}, fmt.Errorf("partition: no parts")
	}
	ranges := make([]Range, len(counts))
	start := 0
	for p, n := range counts {
		if n < 0 {
			return Layout{}, fmt.Errorf("partition: part %d has negative size %d", p, n)
		}
		ranges[p] = Range{Start: start, End: start + n}
		start += n
	}
	return Layout{rows: start, ranges: ranges}, nil
}

// Rows returns the total number of rows.
func (l Layout) Rows() int { return l.rows }

// Parts returns the number of parts.
func (l Layout) Parts() int { return len(l.ranges) }

// Range returns the rows owned by part p.
func (l Layout) Range(p int) Range { return l.ranges[p] }

// Counts returns the number of rows owned by each part.
func (l Layout) Counts() []int {
	counts := make([]int, len(l.ranges))
	for p, r := range l.ranges {
		counts[p] = r.Len()
	}
	return counts
}

// Owner returns the part owning row. Row must be in [0, Rows).
func (l Layout) Owner(row int) int {
	// First range whose End exceeds row; empty ranges are skipped naturally.
	return sort.Search(len(l.ranges), func(p int) bool {
		return l.ranges[p].End > row
	})
}
