package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/coreset/dataset"
	"github.com/hupe1980/coreset/distance"
)

// RNG is a seeded, goroutine-safe random source for synthetic datasets.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates an RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a uniform int in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

func mustDataset(data []float64, n, dim int) *dataset.Dataset {
	ds, err := dataset.New(data, n, dim)
	if err != nil {
		panic(err)
	}
	return ds
}

// Uniform returns n points drawn uniformly from [0, 1)^dim.
func (r *RNG) Uniform(n, dim int) *dataset.Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, n*dim)
	for i := range data {
		data[i] = r.rand.Float64()
	}
	return mustDataset(data, n, dim)
}

// Gaussian returns n standard normal points.
func (r *RNG) Gaussian(n, dim int) *dataset.Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, n*dim)
	for i := range data {
		data[i] = r.rand.NormFloat64()
	}
	return mustDataset(data, n, dim)
}

// Blobs returns perCenter points around each center with Gaussian noise of
// the given spread. Points are grouped by center in input order.
func (r *RNG) Blobs(centers [][]float64, perCenter int, spread float64) *dataset.Dataset {
	if len(centers) == 0 {
		panic("testutil: no centers")
	}
	dim := len(centers[0])

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, 0, len(centers)*perCenter*dim)
	for _, c := range centers {
		for range perCenter {
			for _, v := range c {
				data = append(data, v+r.rand.NormFloat64()*spread)
			}
		}
	}
	return mustDataset(data, len(centers)*perCenter, dim)
}

// RandomCenters returns k centers drawn uniformly from [-scale, scale)^dim.
func (r *RNG) RandomCenters(k, dim int, scale float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, dim)
		for j := range out[i] {
			out[i][j] = (2*r.rand.Float64() - 1) * scale
		}
	}
	return out
}

// WithOutliers appends count points placed at distance far from the origin
// along alternating axes.
func WithOutliers(ds *dataset.Dataset, count int, far float64) *dataset.Dataset {
	dim := ds.NumFeatures()
	data := append([]float64(nil), ds.Data()...)
	for i := range count {
		row := make([]float64, dim)
		row[i%dim] = far
		data = append(data, row...)
	}
	return mustDataset(data, ds.Len()+count, dim)
}

// Assign returns the nearest centroid of every point under Euclidean
// distance, and the resulting sum of squared distances. Ties go to the lower
// index.
func Assign(ds *dataset.Dataset, centroids [][]float64) ([]int, float64) {
	assign := make([]int, ds.Len())
	var sse float64
	for i := range assign {
		best, bestD := 0, math.Inf(1)
		for k, c := range centroids {
			if d := distance.SquaredEuclidean(ds.Row(i), c); d < bestD {
				best, bestD = k, d
			}
		}
		assign[i] = best
		sse += ds.Weight(i) * bestD
	}
	return assign, sse
}

// SSE returns the weighted sum of squared Euclidean distances of every point
// to its assigned centroid.
func SSE(ds *dataset.Dataset, assignments []int, centroids [][]float64) float64 {
	var sse float64
	for i, a := range assignments {
		sse += ds.Weight(i) * distance.SquaredEuclidean(ds.Row(i), centroids[a])
	}
	return sse
}

// Purity returns the fraction of points whose cluster's majority label
// matches their own label.
func Purity(assignments, labels []int) float64 {
	if len(assignments) == 0 {
		return 0
	}
	votes := map[int]map[int]int{}
	for i, a := range assignments {
		if votes[a] == nil {
			votes[a] = map[int]int{}
		}
		votes[a][labels[i]]++
	}
	hits := 0
	for _, v := range votes {
		best := 0
		for _, n := range v {
			best = max(best, n)
		}
		hits += best
	}
	return float64(hits) / float64(len(assignments))
}

// BlobLabels returns the generating center of every point produced by Blobs.
func BlobLabels(numCenters, perCenter int) []int {
	labels := make([]int, numCenters*perCenter)
	for i := range labels {
		labels[i] = i / perCenter
	}
	return labels
}
