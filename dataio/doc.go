// Package dataio reads datasets and writes clustering results.
//
// Datasets come in two encodings:
//
//   - text: whitespace separated values, one point per line
//   - binary: a little-endian header (uint64 points, uint64 features)
//     followed by the row-major float64 values
//
// Binary files on local disk can be opened with OpenMapped, which serves the
// values straight from a memory mapping.
//
// Reader and Writer move the same encodings through a blobstore.Store. Every
// transfer takes a slot from the resource.Controller and is throttled by its
// IO budget. Writer also produces compressed result snapshots, per-cluster
// membership bitmaps and a JSON run summary.
package dataio
