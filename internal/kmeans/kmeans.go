package kmeans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/coreset/distance"
	"github.com/hupe1980/coreset/internal/rma"
)

var (
	// ErrInvalidConfig is returned for a configuration Run cannot execute.
	ErrInvalidConfig = errors.New("kmeans: invalid config")

	// ErrTooFewPoints is returned when there are fewer points than clusters.
	ErrTooFewPoints = errors.New("kmeans: fewer points than clusters")

	// ErrInconsistentBest is returned when ranks select different restarts.
	ErrInconsistentBest = errors.New("kmeans: ranks disagree on the best restart")
)

// Config parameterizes a clustering run.
type Config struct {
	K        int
	Restarts int
	// MaxIterations caps the update phases of a restart.
	MaxIterations int
	Distance      distance.Func
	Seed          int64

	// Initial replaces k-means++ seeding on restart 0 (K rows, row-major).
	Initial []float64

	// OnRestart is called on rank 0 after each restart.
	OnRestart func(Stats)
}

func (cfg Config) validate(rows, dim int) error {
	switch {
	case cfg.K < 1:
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, cfg.K)
	case cfg.Restarts < 1:
		return fmt.Errorf("%w: restarts must be positive, got %d", ErrInvalidConfig, cfg.Restarts)
	case cfg.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, cfg.MaxIterations)
	case cfg.Distance == nil:
		return fmt.Errorf("%w: nil distance", ErrInvalidConfig)
	case rows < cfg.K:
		return fmt.Errorf("%w: %d points, %d clusters", ErrTooFewPoints, rows, cfg.K)
	case cfg.Initial != nil && len(cfg.Initial) != cfg.K*dim:
		return fmt.Errorf("%w: initial centroids have %d values, want %d", ErrInvalidConfig, len(cfg.Initial), cfg.K*dim)
	}
	return nil
}

// Stats describes one restart.
type Stats struct {
	Restart       int
	Error         float64
	Iterations    int
	Converged     bool
	EmptyClusters int
	// Trace holds the objective after every assignment phase, one more
	// entry than Iterations.
	Trace    []float64
	Duration time.Duration
}

// Outcome is the best clustering over all restarts. It is identical on
// every rank.
type Outcome struct {
	Assignments []int
	Centroids   []float64
	Counts      []int
	Error       float64
	Restart     int
	Restarts    []Stats
}

// Run clusters the rows of data. weights may be nil for unit weights.
// Run is collective; data (and weights) must be loaded and fenced.
func Run(ctx context.Context, c *rma.Comm, data, weights *rma.Window[float64], cfg Config) (*Outcome, error) {
	if err := cfg.validate(data.Rows(), data.Width()); err != nil {
		return nil, err
	}

	e, err := newEngine(ctx, c, data, weights, cfg)
	if err != nil {
		return nil, err
	}

	var (
		best  Best
		snap  snapshot
		stats = make([]Stats, 0, cfg.Restarts)
	)
	for r := 0; r < cfg.Restarts; r++ {
		st, err := e.restart(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("restart %d: %w", r, err)
		}
		stats = append(stats, st)

		if best.Offer(Candidate{Error: st.Error, Restart: r, Rank: c.Rank()}) {
			e.snapshot(&snap)
		}
		if c.Rank() == 0 {
			e.logger.Info("restart complete", "restart", r, "error", st.Error, "iterations", st.Iterations, "converged", st.Converged)
			if cfg.OnRestart != nil {
				cfg.OnRestart(st)
			}
		}
	}

	local, _ := best.Candidate()
	winner, err := ReduceBest(ctx, c, local)
	if err != nil {
		return nil, err
	}
	if winner.Restart != local.Restart {
		return nil, fmt.Errorf("%w: rank %d kept restart %d, winner is restart %d", ErrInconsistentBest, c.Rank(), local.Restart, winner.Restart)
	}

	parts, err := rma.Allgather(ctx, c, snap.assign)
	if err != nil {
		return nil, err
	}
	assignments := make([]int, 0, data.Rows())
	for _, p := range parts {
		assignments = append(assignments, p...)
	}

	out := &Outcome{
		Assignments: assignments,
		Centroids:   snap.centroids,
		Counts:      snap.counts,
		Error:       winner.Error,
		Restart:     winner.Restart,
		Restarts:    stats,
	}

	if err := e.free(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Nearest returns the index of the centroid closest to vec and the distance
// to it. Ties go to the lower index.
func Nearest(vec, centroids []float64, dim int, dist distance.Func) (int, float64) {
	best := 0
	minDist := dist(vec, centroids[:dim])
	for j := 1; (j+1)*dim <= len(centroids); j++ {
		if d := dist(vec, centroids[j*dim:(j+1)*dim]); d < minDist {
			minDist = d
			best = j
		}
	}
	return best, minDist
}
