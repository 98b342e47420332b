// Package minio stores datasets and clustering results in MinIO or any other
// S3-compatible object store (Ceph, Garage, SeaweedFS).
//
//	store, err := minio.Dial("localhost:9000", "minioadmin", "minioadmin", false, "clusters", "runs/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := dataio.NewReader(store, nil)
//	ds, err := r.ReadBinary(ctx, "points.bin")
package minio
