package blobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"
)

// AzureContainerClient is the subset of *azblob.Client this backend
// depends on, so tests can substitute a fake without a live Azure account.
type AzureContainerClient interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, options *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, options *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, options *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
}

// AzureBackend stores blobs as block blobs in an Azure Storage container,
// one blob per content object named {submodelID}/{blobID}.
type AzureBackend struct {
	Client          AzureContainerClient
	Container       string
	InlineThreshold int64
	ChunkSize       int64
}

// NewAzureBackend constructs an AzureBackend over an already-configured
// client.
func NewAzureBackend(client AzureContainerClient, container string, inlineThreshold, chunkSize int64) *AzureBackend {
	return &AzureBackend{Client: client, Container: container, InlineThreshold: inlineThreshold, ChunkSize: chunkSize}
}

func (a *AzureBackend) blobName(submodelID, blobID string) string {
	return fmt.Sprintf("%s/%s", submodelID, blobID)
}

// Store uploads content under a freshly generated blob id.
func (a *AzureBackend) Store(ctx context.Context, submodelID, idShortPath string, content []byte, contentType, filename string) (Metadata, error) {
	blobID := uuid.NewString()
	name := a.blobName(submodelID, blobID)

	_, err := a.Client.UploadBuffer(ctx, a.Container, name, content, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("blobstore: azure upload %s: %w", name, err)
	}

	now := time.Now().UTC()
	return Metadata{
		ID:          blobID,
		SubmodelID:  submodelID,
		IdShortPath: idShortPath,
		StorageType: "azure",
		StorageURI:  fmt.Sprintf("azblob://%s/%s", a.Container, name),
		ContentType: contentType,
		Filename:    filename,
		SizeBytes:   int64(len(content)),
		ContentHash: ComputeHash(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Retrieve downloads the full blob into memory.
func (a *AzureBackend) Retrieve(ctx context.Context, meta Metadata) ([]byte, error) {
	rc, err := a.Stream(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Stream returns the blob's download body as a reader.
func (a *AzureBackend) Stream(ctx context.Context, meta Metadata) (io.ReadCloser, error) {
	resp, err := a.Client.DownloadStream(ctx, a.Container, a.blobName(meta.SubmodelID, meta.ID), nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: azure download %s: %w", meta.ID, err)
	}
	return resp.Body, nil
}

// Delete removes the blob. A missing blob is not an error.
func (a *AzureBackend) Delete(ctx context.Context, meta Metadata) error {
	_, err := a.Client.DeleteBlob(ctx, a.Container, a.blobName(meta.SubmodelID, meta.ID), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("blobstore: azure delete %s: %w", meta.ID, err)
	}
	return nil
}

// Exists attempts a download and reports whether the blob is reachable.
func (a *AzureBackend) Exists(ctx context.Context, meta Metadata) (bool, error) {
	rc, err := a.Stream(ctx, meta)
	if err != nil {
		return false, nil
	}
	rc.Close()
	return true, nil
}

// ShouldExternalize reports whether content exceeds the configured inline
// threshold.
func (a *AzureBackend) ShouldExternalize(content []byte, contentType string) bool {
	return int64(len(content)) > a.InlineThreshold
}
