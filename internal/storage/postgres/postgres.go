// Package postgres implements internal/storage.Repository against a
// single PostgreSQL table per entity kind; each row holds the canonical
// bytes, the ETag and the indexed lookup columns.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/titan-aas/titan-aas/internal/storage"
	"github.com/titan-aas/titan-aas/internal/tenancy"
)

type txKey struct{}

// TxFromContext extracts an in-flight transaction from ctx, or nil.
func TxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// ContextWithTx attaches tx to ctx so nested repository calls made
// during the same request reuse it instead of opening a new one.
func ContextWithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Repository implements storage.Repository for one entity Kind's table.
// The table is expected to carry the columns: id, tenant_id, doc_bytes,
// etag, global_asset_id, semantic_id, created_at, updated_at.
type Repository struct {
	db    *sqlx.DB
	table string
}

// New returns a Repository backed by db for the named table.
func New(db *sqlx.DB, table string) *Repository {
	return &Repository{db: db, table: table}
}

// WithTx runs fn with a transaction attached to ctx, committing on
// success and rolling back on any returned error — mirroring
// pkg/storage/postgres.BaseStore.WithTx.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repository) querier(ctx context.Context) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

func (r *Repository) Create(ctx context.Context, id string, canonicalBytes []byte, etag string, indexed storage.IndexedFields) error {
	tenantID := tenancy.FromContext(ctx)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_id, doc_bytes, etag, global_asset_id, semantic_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`, r.table)

	_, err := r.querier(ctx).ExecContext(ctx, query,
		id, tenantID, canonicalBytes, etag, nullableString(indexed.GlobalAssetID), nullableString(indexed.SemanticID))
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: create %s: %w", r.table, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (storage.Record, error) {
	tenantID := tenancy.FromContext(ctx)
	query := fmt.Sprintf(`
		SELECT id, doc_bytes, etag, created_at, updated_at
		FROM %s WHERE id = $1 AND tenant_id = $2`, r.table)

	var rec row
	err := r.querier(ctx).GetContext(ctx, &rec, query, id, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("postgres: get %s: %w", r.table, err)
	}
	return rec.toRecord(), nil
}

func (r *Repository) List(ctx context.Context, opts storage.ListOptions) (storage.ListPage, error) {
	tenantID := tenancy.FromContext(ctx)
	cur, err := storage.DecodeCursor(opts.Cursor)
	if err != nil {
		return storage.ListPage{}, err
	}
	limit := storage.NormalizeLimit(opts.Limit)

	query := fmt.Sprintf(`
		SELECT id, doc_bytes, etag, created_at, updated_at
		FROM %s
		WHERE tenant_id = $1
		  AND ($2::timestamptz IS NULL OR (created_at, id) > ($2, $3))
		  AND ($4::text IS NULL OR global_asset_id = $4)
		  AND ($5::text IS NULL OR semantic_id = $5)
		ORDER BY created_at ASC, id ASC
		LIMIT $6`, r.table)

	var createdAt interface{}
	if !cur.CreatedAt.IsZero() {
		createdAt = cur.CreatedAt
	}

	var rows []row
	err = r.querier(ctx).SelectContext(ctx, &rows, query,
		tenantID, createdAt, cur.ID, nullableString(opts.GlobalAssetID), nullableString(opts.SemanticID), limit)
	if err != nil {
		return storage.ListPage{}, fmt.Errorf("postgres: list %s: %w", r.table, err)
	}

	page := storage.ListPage{Items: make([]storage.Record, 0, len(rows))}
	for _, rr := range rows {
		page.Items = append(page.Items, rr.toRecord())
	}
	if len(rows) == limit {
		last := rows[len(rows)-1]
		page.NextCursor = storage.EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (r *Repository) Replace(ctx context.Context, id string, canonicalBytes []byte, etag string, ifMatch string, indexed storage.IndexedFields) error {
	tenantID := tenancy.FromContext(ctx)

	query := fmt.Sprintf(`
		UPDATE %s
		SET doc_bytes = $1, etag = $2, global_asset_id = $3, semantic_id = $4, updated_at = now()
		WHERE id = $5 AND tenant_id = $6`, r.table)
	args := []interface{}{canonicalBytes, etag, nullableString(indexed.GlobalAssetID), nullableString(indexed.SemanticID), id, tenantID}

	if ifMatch != "" && ifMatch != "*" {
		query += " AND etag = $7"
		args = append(args, ifMatch)
	}

	result, err := r.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: replace %s: %w", r.table, err)
	}
	return r.checkMutated(ctx, result, id, tenantID, ifMatch)
}

func (r *Repository) Delete(ctx context.Context, id string, ifMatch string) error {
	tenantID := tenancy.FromContext(ctx)

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND tenant_id = $2`, r.table)
	args := []interface{}{id, tenantID}
	if ifMatch != "" && ifMatch != "*" {
		query += " AND etag = $3"
		args = append(args, ifMatch)
	}

	result, err := r.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: delete %s: %w", r.table, err)
	}
	return r.checkMutated(ctx, result, id, tenantID, ifMatch)
}

// checkMutated distinguishes "no such row" (ErrNotFound) from "row
// exists but etag didn't match" (ErrPreconditionFailed) after a
// zero-rows-affected UPDATE/DELETE: an if-match mismatch and a missing
// row are different failures.
func (r *Repository) checkMutated(ctx context.Context, result sql.Result, id, tenantID, ifMatch string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if ifMatch == "" || ifMatch == "*" {
		return storage.ErrNotFound
	}

	existsQuery := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1 AND tenant_id = $2)`, r.table)
	var exists bool
	if err := r.querier(ctx).GetContext(ctx, &exists, existsQuery, id, tenantID); err != nil {
		return fmt.Errorf("postgres: exists check: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrPreconditionFailed
}

// row mirrors the subset of table columns read back on every query.
type row struct {
	ID        string    `db:"id"`
	DocBytes  []byte    `db:"doc_bytes"`
	ETag      string    `db:"etag"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (rr row) toRecord() storage.Record {
	return storage.Record{
		ID:             rr.ID,
		CanonicalBytes: rr.DocBytes,
		ETag:           rr.ETag,
		CreatedAt:      rr.CreatedAt,
		UpdatedAt:      rr.UpdatedAt,
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
