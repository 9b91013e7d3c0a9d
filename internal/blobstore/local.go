package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LocalBackend stores blobs on the local filesystem, sharded by the first
// two characters of the submodel id to bound directory fan-out:
// {basePath}/{shard}/{submodelID}/{blobID}.
type LocalBackend struct {
	BasePath        string
	InlineThreshold int64
	ChunkSize       int64
}

// NewLocalBackend constructs a LocalBackend rooted at basePath.
func NewLocalBackend(basePath string, inlineThreshold, chunkSize int64) *LocalBackend {
	return &LocalBackend{BasePath: basePath, InlineThreshold: inlineThreshold, ChunkSize: chunkSize}
}

func (l *LocalBackend) shardPath(submodelID, blobID string) string {
	shard := "00"
	if len(submodelID) >= 2 {
		shard = submodelID[:2]
	}
	return filepath.Join(l.BasePath, shard, submodelID, blobID)
}

// Store writes content to a freshly generated blob id under the sharded
// path, creating parent directories as needed.
func (l *LocalBackend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	path := l.shardPath(submodelID, blobID)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Metadata{}, fmt.Errorf("blobstore: create directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return Metadata{}, fmt.Errorf("blobstore: write blob: %w", err)
	}

	now := time.Now().UTC()
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IdShortPath: idShortPath,
		StorageType: "local",
		StorageURI:  path,
		ContentType: contentType,
		Filename:    filename,
		SizeBytes:   int64(len(content)),
		ContentHash: ComputeHash(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Retrieve reads the full blob content from its storage URI.
func (l *LocalBackend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	content, err := os.ReadFile(meta.StorageURI)
	if err != nil {
		return nil, fmt.Errorf("blobstore: retrieve %s: %w", meta.ID, err)
	}
	return content, nil
}

// Stream opens the blob file and returns it as the reader; ChunkSize is
// not applied. The caller must Close the returned reader.
func (l *LocalBackend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	f, err := os.Open(meta.StorageURI)
	if err != nil {
		return nil, fmt.Errorf("blobstore: stream %s: %w", meta.ID, err)
	}
	return f, nil
}

// Delete removes the blob file, then prunes now-empty parent directories up
// to BasePath. A missing file is not an error.
func (l *LocalBackend) Delete(ctx context.Context, meta Metadata) error {
	if err := os.Remove(meta.StorageURI); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("blobstore: delete %s: %w", meta.ID, err)
	}

	dir := filepath.Dir(meta.StorageURI)
	for dir != l.BasePath && dir != "." && dir != string(filepath.Separator) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Exists reports whether the blob file is still present.
func (l *LocalBackend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	_, err := os.Stat(meta.StorageURI)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ShouldExternalize reports whether content exceeds the configured inline
// threshold.
func (l *LocalBackend) ShouldExternalize(content []byte, contentType string) bool {
	return int64(len(content)) > l.InlineThreshold
}
