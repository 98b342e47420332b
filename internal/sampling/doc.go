// Package sampling implements weighted random selection and sensitivity
// sampling of coresets over a partitioned dataset.
//
// Both k-means++ seeding and coreset construction draw indices with
// WeightedIndex: the draw target is frac times the weight total, and weights
// are subtracted in order until the target becomes non-positive.
package sampling
