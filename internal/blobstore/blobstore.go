// Package blobstore implements the pluggable blob backend contract:
// storing, retrieving, and streaming externalized Blob/File content,
// plus the recursive externalization pass that rewrites large inline values
// into opaque /blobs/{uuid} references.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"
)

// Metadata is the persisted row describing one externalized blob:
// (id, submodel_id, id_short_path, storage_uri, content_type,
// size_bytes, content_hash, created_at).
type Metadata struct {
	ID          string
	SubmodelID  string
	IdShortPath string
	StorageType string
	StorageURI  string
	ContentType string
	Filename    string
	SizeBytes   int64
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Backend is the contract every blob storage implementation satisfies:
// local filesystem, S3-compatible, Azure Blob, and Google Cloud Storage.
type Backend interface {
	// Store persists content under (submodelID, idShortPath) and returns
	// its metadata row. filename is optional (File elements only).
	Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error)

	// Retrieve reads the full blob content into memory.
	Retrieve(ctx context.Context, meta Metadata) ([]byte, error)

	// Stream returns a reader over the content, so large downloads need
	// not be held in memory. Callers must Close it. The read size is the
	// caller's; no backend applies its ChunkSize field to the reader.
	Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error)

	// Delete removes the blob. Deleting an already-absent blob is not an
	// error — cascading submodel deletes may race with a prior delete.
	Delete(ctx context.Context, meta Metadata) error

	// Exists reports whether the blob content is still present.
	Exists(ctx context.Context, meta Metadata) (bool, error)

	// ShouldExternalize reports whether content of this size/type should be
	// moved out of the inline document and replaced with a /blobs/{uuid}
	// reference, per the backend's configured inline threshold.
	ShouldExternalize(content []byte, contentType string) bool
}

// ComputeHash returns the hex-encoded SHA-256 of content, used to populate
// Metadata.ContentHash.
func ComputeHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
