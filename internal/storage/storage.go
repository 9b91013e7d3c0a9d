// Package storage defines the repository contract shared by every
// identifiable AAS entity kind (shell, submodel, concept description,
// descriptor). Each entity is stored as one row holding its immutable
// canonical bytes, used for the fast read path and ETag derivation,
// plus the indexed lookup columns of IndexedFields; no separate
// structured copy of the document is stored.
package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors every implementation returns for the contract's
// standard failure modes.
var (
	ErrConflict           = errors.New("storage: entity already exists")
	ErrNotFound           = errors.New("storage: entity not found")
	ErrPreconditionFailed = errors.New("storage: if-match precondition failed")
)

// Kind identifies which table/collection a Repository call addresses.
type Kind string

const (
	KindShell              Kind = "aas"
	KindSubmodel           Kind = "sm"
	KindConceptDesc        Kind = "cd"
	KindShellDescriptor    Kind = "aas_descriptor"
	KindSubmodelDescriptor Kind = "sm_descriptor"
)

// IndexedFields carries the query-supporting columns maintained
// alongside the document.
type IndexedFields struct {
	GlobalAssetID string
	SemanticID    string
}

// Record is what every read path returns: the canonical bytes (the
// authoritative wire form), its ETag, and the timestamps used for
// pagination.
type Record struct {
	ID             string
	CanonicalBytes []byte
	ETag           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ListOptions controls a List call.
type ListOptions struct {
	// Cursor is an opaque token from a previous ListPage.NextCursor, or
	// "" to start from the beginning.
	Cursor string
	// Limit caps the page size; callers should clamp to [1,1000] with a
	// default of 100 before calling.
	Limit int
	// GlobalAssetID, if non-empty, restricts the page to shells carrying
	// this asset id (KindShell only).
	GlobalAssetID string
	// SemanticID, if non-empty, restricts the page to submodels/
	// descriptors carrying this semantic id.
	SemanticID string
}

// ListPage is a single page of Records plus the cursor for the next one.
// NextCursor is "" when the page holds fewer than Limit items; a full
// last page still carries a cursor, whose page is then empty.
type ListPage struct {
	Items      []Record
	NextCursor string
}

// Repository is the kind-agnostic CRUD contract every identifiable AAS
// entity is stored through. A concrete Repository is bound to one Kind
// (one table); internal/app wires one per kind against the same
// underlying connection.
type Repository interface {
	// Create inserts a new row. Returns ErrConflict if a row with id
	// already exists; the key is id alone, not scoped to a tenant.
	Create(ctx context.Context, id string, canonicalBytes []byte, etag string, indexed IndexedFields) error

	// Get returns the current Record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// List returns a page of Records ordered by (created_at, id) ascending.
	List(ctx context.Context, opts ListOptions) (ListPage, error)

	// Replace overwrites id's document/bytes/etag atomically. If ifMatch
	// is non-empty and not "*", it must equal the current ETag or
	// ErrPreconditionFailed is returned. Returns ErrNotFound if id does
	// not exist.
	Replace(ctx context.Context, id string, canonicalBytes []byte, etag string, ifMatch string, indexed IndexedFields) error

	// Delete removes id, honoring ifMatch the same way Replace does.
	// Deleting a non-existent id returns ErrNotFound without side effects.
	Delete(ctx context.Context, id string, ifMatch string) error
}

// DefaultLimit and MaxLimit bound List page sizes.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// NormalizeLimit clamps a requested page size to [1, MaxLimit], applying
// DefaultLimit when n is zero or negative.
func NormalizeLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
