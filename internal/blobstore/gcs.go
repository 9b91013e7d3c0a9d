package blobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCSBucketHandle is the subset of *storage.BucketHandle this backend
// depends on, so tests can substitute a fake without live GCS credentials.
type GCSBucketHandle interface {
	Object(name string) *storage.ObjectHandle
}

// GCSBackend stores blobs as objects in a Google Cloud Storage bucket, one
// object per blob named {submodelID}/{blobID}.
type GCSBackend struct {
	Bucket          GCSBucketHandle
	BucketName      string
	InlineThreshold int64
	ChunkSize       int64
}

// NewGCSBackend constructs a GCSBackend over an already-configured bucket
// handle.
func NewGCSBackend(bucket GCSBucketHandle, bucketName string, inlineThreshold, chunkSize int64) *GCSBackend {
	return &GCSBackend{Bucket: bucket, BucketName: bucketName, InlineThreshold: inlineThreshold, ChunkSize: chunkSize}
}

func (g *GCSBackend) objectName(submodelID, blobID string) string {
	return fmt.Sprintf("%s/%s", submodelID, blobID)
}

// Store uploads content under a freshly generated blob id.
func (g *GCSBackend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	name := g.objectName(submodelID, blobID)

	w := g.Bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		w.Close()
		return Metadata{}, fmt.Errorf("blobstore: gcs write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return Metadata{}, fmt.Errorf("blobstore: gcs finalize %s: %w", name, err)
	}

	now := time.Now().UTC()
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IdShortPath: idShortPath,
		StorageType: "gcs",
		StorageURI:  fmt.Sprintf("gs://%s/%s", g.BucketName, name),
		ContentType: contentType,
		Filename:    filename,
		SizeBytes:   int64(len(content)),
		ContentHash: ComputeHash(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Retrieve downloads the full object into memory.
func (g *GCSBackend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	rc, err := g.Stream(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Stream returns the object's read stream.
func (g *GCSBackend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	r, err := g.Bucket.Object(g.objectName(meta.SubmodelID, meta.ID)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("blobstore: gcs read %s: %w", meta.ID, err)
	}
	return r, nil
}

// Delete removes the object. A missing object is not an error.
func (g *GCSBackend) Delete(ctx context.Context, meta Metadata) error {
	err := g.Bucket.Object(g.objectName(meta.SubmodelID, meta.ID)).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("blobstore: gcs delete %s: %w", meta.ID, err)
	}
	return nil
}

// Exists reports whether the object still exists.
func (g *GCSBackend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	_, err := g.Bucket.Object(g.objectName(meta.SubmodelID, meta.ID)).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ShouldExternalize reports whether content exceeds the configured inline
// threshold.
func (g *GCSBackend) ShouldExternalize(content []byte, contentType string) bool {
	return int64(len(content)) > g.InlineThreshold
}
