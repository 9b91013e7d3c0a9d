package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/titan-aas/titan-aas/internal/tenancy"
)

// PostgresMetadataStore implements MetadataStore against the `blobs`
// table internal/platform/migrations already provisions, reusing the
// plain *sqlx.DB querying idiom internal/storage/postgres.Repository
// establishes for entity tables, including its per-tenant scoping.
type PostgresMetadataStore struct {
	db *sqlx.DB
}

// NewPostgresMetadataStore returns a MetadataStore backed by db.
func NewPostgresMetadataStore(db *sqlx.DB) *PostgresMetadataStore {
	return &PostgresMetadataStore{db: db}
}

type metadataRow struct {
	ID          string `db:"id"`
	SubmodelID  string `db:"submodel_id"`
	IdShortPath string `db:"id_short_path"`
	StorageType string `db:"storage_type"`
	StorageURI  string `db:"storage_uri"`
	ContentType string `db:"content_type"`
	Filename    string `db:"filename"`
	SizeBytes   int64  `db:"size_bytes"`
	ContentHash string `db:"content_hash"`
}

func (s *PostgresMetadataStore) Put(ctx context.Context, meta Metadata) error {
	tenantID := tenancy.FromContext(ctx)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (id, tenant_id, submodel_id, id_short_path, storage_type, storage_uri, content_type, filename, size_bytes, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			storage_type = EXCLUDED.storage_type,
			storage_uri  = EXCLUDED.storage_uri,
			content_type = EXCLUDED.content_type,
			filename     = EXCLUDED.filename,
			size_bytes   = EXCLUDED.size_bytes,
			content_hash = EXCLUDED.content_hash,
			updated_at   = now()`,
		meta.ID, tenantID, meta.SubmodelID, meta.IdShortPath, meta.StorageType, meta.StorageURI, meta.ContentType, meta.Filename, meta.SizeBytes, meta.ContentHash)
	if err != nil {
		return fmt.Errorf("blobstore: put metadata %s: %w", meta.ID, err)
	}
	return nil
}

func (s *PostgresMetadataStore) Get(ctx context.Context, id string) (Metadata, error) {
	tenantID := tenancy.FromContext(ctx)
	var row metadataRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, submodel_id, id_short_path, storage_type, storage_uri, content_type, filename, size_bytes, content_hash
		FROM blobs WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return Metadata{}, ErrMetadataNotFound
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("blobstore: get metadata %s: %w", id, err)
	}
	return Metadata{
		ID:          row.ID,
		SubmodelID:  row.SubmodelID,
		IdShortPath: row.IdShortPath,
		StorageType: row.StorageType,
		StorageURI:  row.StorageURI,
		ContentType: row.ContentType,
		Filename:    row.Filename,
		SizeBytes:   row.SizeBytes,
		ContentHash: row.ContentHash,
	}, nil
}

func (s *PostgresMetadataStore) DeleteBySubmodel(ctx context.Context, submodelID string) error {
	tenantID := tenancy.FromContext(ctx)
	_, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE submodel_id = $1 AND tenant_id = $2`, submodelID, tenantID)
	if err != nil {
		return fmt.Errorf("blobstore: delete metadata for submodel %s: %w", submodelID, err)
	}
	return nil
}
