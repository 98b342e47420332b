// Package blobstore abstracts the storage that datasets and clustering results
// are read from and written to.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, used by tests
//   - LocalStore: local filesystem with mmap reads
//   - minio.Store: MinIO and S3-compatible object stores
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// # Custom Implementations
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blobs that can expose their contents without copying also implement Mappable.
package blobstore
