package dataio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/coreset"
	"github.com/hupe1980/coreset/blobstore"
	"github.com/hupe1980/coreset/dataset"
	"github.com/hupe1980/coreset/resource"
)

// Reader loads datasets and results from a store.
type Reader struct {
	store blobstore.Store
	rc    *resource.Controller
}

// NewReader returns a Reader over store. rc may be nil.
func NewReader(store blobstore.Store, rc *resource.Controller) *Reader {
	return &Reader{store: store, rc: rc}
}

// open acquires a transfer slot and returns a throttled stream over name.
// The returned close func releases both.
func (r *Reader) open(ctx context.Context, name string) (io.Reader, func(), error) {
	if err := r.rc.AcquireTransfer(ctx); err != nil {
		return nil, nil, err
	}
	b, err := r.store.Open(ctx, name)
	if err != nil {
		r.rc.ReleaseTransfer()
		return nil, nil, fmt.Errorf("dataio: open %s: %w", name, err)
	}
	src := resource.NewLimitedReader(ctx, blobstore.NewReader(ctx, b), r.rc)
	return bufio.NewReaderSize(src, 256*1024), func() {
		_ = b.Close()
		r.rc.ReleaseTransfer()
	}, nil
}

func (r *Reader) readAll(ctx context.Context, name string) ([]byte, error) {
	src, done, err := r.open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer done()
	return io.ReadAll(src)
}

// ReadText loads a text dataset. See the package function ReadText.
func (r *Reader) ReadText(ctx context.Context, name string, numPoints, numFeatures int) (*dataset.Dataset, error) {
	src, done, err := r.open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer done()
	return ReadText(src, numPoints, numFeatures)
}

// ReadBinary loads a binary dataset.
func (r *Reader) ReadBinary(ctx context.Context, name string) (*dataset.Dataset, error) {
	src, done, err := r.open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer done()
	return ReadBinary(src)
}

// ReadSnapshot loads a result snapshot.
func (r *Reader) ReadSnapshot(ctx context.Context, name string) (*coreset.Result, error) {
	data, err := r.readAll(ctx, name)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(data)
}

// ReadMembers loads a membership bitmap written by Writer.WriteMembers.
func (r *Reader) ReadMembers(ctx context.Context, name string) (*roaring.Bitmap, error) {
	data, err := r.readAll(ctx, name)
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return bm, nil
}

// ReadSummary loads a JSON run summary.
func (r *Reader) ReadSummary(ctx context.Context, name string) (Summary, error) {
	data, err := r.readAll(ctx, name)
	if err != nil {
		return Summary{}, err
	}
	return UnmarshalSummary(data)
}

// Writer stores datasets and clustering results.
type Writer struct {
	store blobstore.Store
	rc    *resource.Controller
}

// NewWriter returns a Writer over store. rc may be nil.
func NewWriter(store blobstore.Store, rc *resource.Controller) *Writer {
	return &Writer{store: store, rc: rc}
}

func (w *Writer) put(ctx context.Context, name string, data []byte) error {
	if err := w.rc.AcquireTransfer(ctx); err != nil {
		return err
	}
	defer w.rc.ReleaseTransfer()

	if err := w.rc.WaitIO(ctx, len(data)); err != nil {
		return err
	}
	if err := w.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("dataio: put %s: %w", name, err)
	}
	return nil
}

// WriteDataset stores ds in the binary encoding.
func (w *Writer) WriteDataset(ctx context.Context, name string, ds *dataset.Dataset) error {
	return w.put(ctx, name, EncodeBinary(ds))
}

// WriteClusters stores the centroids as text, one cluster per line. The
// file can be read back with ReadText(K, features).
func (w *Writer) WriteClusters(ctx context.Context, name string, res *coreset.Result) error {
	var buf bytes.Buffer
	for _, ctr := range res.Centroids {
		if err := WriteText(&buf, ctr, len(ctr)); err != nil {
			return err
		}
	}
	return w.put(ctx, name, buf.Bytes())
}

// WriteClustering stores the cluster index of every point, one per line.
func (w *Writer) WriteClustering(ctx context.Context, name string, res *coreset.Result) error {
	var buf bytes.Buffer
	if err := WriteInts(&buf, res.Assignments); err != nil {
		return err
	}
	return w.put(ctx, name, buf.Bytes())
}

// WriteSnapshot stores a compressed binary snapshot of res.
func (w *Writer) WriteSnapshot(ctx context.Context, name string, res *coreset.Result, c Compression) error {
	data, err := EncodeSnapshot(res, c)
	if err != nil {
		return err
	}
	return w.put(ctx, name, data)
}

// WriteSummary stores the JSON run summary of res.
func (w *Writer) WriteSummary(ctx context.Context, name string, res *coreset.Result) error {
	data, err := MarshalSummary(res)
	if err != nil {
		return err
	}
	return w.put(ctx, name, data)
}

// MembersName returns the blob name WriteMembers uses for cluster k.
func MembersName(prefix string, k int) string {
	return path.Join(prefix, fmt.Sprintf("cluster-%04d.roaring", k))
}

// WriteMembers stores one serialized roaring bitmap per cluster below
// prefix. Uploads run concurrently, bounded by the controller's transfer
// slots.
func (w *Writer) WriteMembers(ctx context.Context, prefix string, res *coreset.Result) error {
	g, ctx := errgroup.WithContext(ctx)
	for k := range res.K() {
		g.Go(func() error {
			bm := res.Members(k)
			bm.RunOptimize()
			data, err := bm.ToBytes()
			if err != nil {
				return err
			}
			return w.put(ctx, MembersName(prefix, k), data)
		})
	}
	return g.Wait()
}

// WriteAll stores the clusters, clustering, summary and a ZSTD snapshot of
// res below prefix.
func (w *Writer) WriteAll(ctx context.Context, prefix string, res *coreset.Result) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.WriteClusters(ctx, path.Join(prefix, "clusters.txt"), res) })
	g.Go(func() error { return w.WriteClustering(ctx, path.Join(prefix, "clustering.txt"), res) })
	g.Go(func() error { return w.WriteSummary(ctx, path.Join(prefix, "summary.json"), res) })
	g.Go(func() error {
		return w.WriteSnapshot(ctx, path.Join(prefix, "result.snap"), res, CompressionZSTD)
	})
	return g.Wait()
}
