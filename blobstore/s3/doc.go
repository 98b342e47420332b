// Package s3 implements blobstore.Store on Amazon S3.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("clusters/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
// Reads use ranged GETs, Create streams through a multipart upload, and Put
// attaches a CRC32C checksum.
package s3
