package dataio

import (
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/coreset"
)

// Summary is the JSON report written next to a clustering.
type Summary struct {
	Clusters     int              `json:"clusters"`
	Features     int              `json:"features"`
	Points       int              `json:"points"`
	Error        float64          `json:"error"`
	DatasetError float64          `json:"dataset_error"`
	Restart      int              `json:"restart"`
	Counts       []int            `json:"counts"`
	Restarts     []RestartSummary `json:"restarts,omitempty"`
}

// RestartSummary reports one restart.
type RestartSummary struct {
	Restart       int     `json:"restart"`
	Error         float64 `json:"error"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	EmptyClusters int     `json:"empty_clusters"`
	Millis        float64 `json:"duration_ms"`
}

// NewSummary builds the report for res.
func NewSummary(res *coreset.Result) Summary {
	s := Summary{
		Clusters:     res.K(),
		Points:       len(res.Assignments),
		Error:        res.Error,
		DatasetError: res.DatasetError,
		Restart:      res.Restart,
		Counts:       res.Counts,
	}
	if s.Clusters > 0 {
		s.Features = len(res.Centroids[0])
	}
	for _, st := range res.Restarts {
		s.Restarts = append(s.Restarts, RestartSummary{
			Restart:       st.Restart,
			Error:         st.Error,
			Iterations:    st.Iterations,
			Converged:     st.Converged,
			EmptyClusters: st.EmptyClusters,
			Millis:        float64(st.Duration) / float64(time.Millisecond),
		})
	}
	return s
}

// MarshalSummary encodes the report for res as indented JSON.
func MarshalSummary(res *coreset.Result) ([]byte, error) {
	return gojson.MarshalIndent(NewSummary(res), "", "  ")
}

// UnmarshalSummary decodes a report.
func UnmarshalSummary(data []byte) (Summary, error) {
	var s Summary
	err := gojson.Unmarshal(data, &s)
	return s, err
}
