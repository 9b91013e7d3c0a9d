package blobstore

import (
	"context"
	"errors"
)

// ErrMetadataNotFound is returned by MetadataStore.Get when no blob with
// the given id has been recorded.
var ErrMetadataNotFound = errors.New("blobstore: metadata not found")

// MetadataStore persists the Metadata rows ExternalizeSubmodel produces,
// so a later GET /blobs/{id} can reconstruct the (submodelID, storageURI,
// contentType, ...) a Backend needs to retrieve or stream content —
// Backend itself is stateless and addresses content only by the full
// Metadata it was handed at Store time.
type MetadataStore interface {
	// Put records or overwrites meta, keyed by meta.ID.
	Put(ctx context.Context, meta Metadata) error

	// Get returns the recorded Metadata for id, or ErrMetadataNotFound.
	Get(ctx context.Context, id string) (Metadata, error)

	// DeleteBySubmodel removes every row recorded for submodelID,
	// called when a Submodel is deleted so orphaned blob rows don't
	// accumulate even though the referencing document is gone.
	DeleteBySubmodel(ctx context.Context, submodelID string) error
}
