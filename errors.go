package coreset

import (
	"errors"
	"fmt"

	"github.com/hupe1980/coreset/internal/kmeans"
	"github.com/hupe1980/coreset/internal/sampling"
)

var (
	// ErrInvalidNumClusters is returned when the cluster count is not positive.
	ErrInvalidNumClusters = errors.New("number of clusters must be positive")

	// ErrInvalidNumRestarts is returned when the restart count is not positive.
	ErrInvalidNumRestarts = errors.New("number of restarts must be positive")

	// ErrInvalidNumWorkers is returned when the worker count is not positive.
	ErrInvalidNumWorkers = errors.New("number of workers must be positive")

	// ErrInvalidSampleSize is returned when the coreset sample size is not positive.
	ErrInvalidSampleSize = errors.New("coreset sample size must be positive")

	// ErrInvalidMaxIterations is returned when the iteration budget is not positive.
	ErrInvalidMaxIterations = errors.New("max iterations must be positive")

	// ErrInvalidDistance is returned for a nil distance function or unknown metric.
	ErrInvalidDistance = errors.New("invalid distance")

	// ErrSampleSizeExceedsData is returned when the sample size is not smaller
	// than the dataset and the full-dataset fallback is disabled.
	ErrSampleSizeExceedsData = errors.New("coreset sample size exceeds dataset size")

	// ErrPrecondition is wrapped by every PreconditionError.
	ErrPrecondition = errors.New("precondition violated")

	// ErrNotFitted is returned by operations that need a fitted model.
	ErrNotFitted = errors.New("clusterer has not been fitted")
)

// Precondition check names reported by PreconditionError.
const (
	CheckDatasetShape        = "dataset-shape"
	CheckNumFeatures         = "num-features"
	CheckTooFewPoints        = "too-few-points"
	CheckInitialCentroids    = "initial-centroids-count"
	CheckInitialDimension    = "initial-centroids-dimension"
	CheckAssignmentLength    = "assignment-length"
	CheckPointDimension      = "point-dimension"
	CheckCoresetTooFewPoints = "coreset-too-few-points"
	CheckTooManyPoints       = "too-many-points"
)

// PreconditionError reports which precondition check failed.
//
// errors.Is(err, ErrPrecondition) holds for every PreconditionError.
type PreconditionError struct {
	Check    string
	Expected int
	Actual   int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition %s failed: expected %d, got %d", e.Check, e.Expected, e.Actual)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, kmeans.ErrTooFewPoints) {
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}
	if errors.Is(err, sampling.ErrEmptyData) {
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	return err
}
