package httpapi

import (
	"context"
	"sort"
	"sync"

	"github.com/titan-aas/titan-aas/internal/storage"
)

// memRepository is an in-memory storage.Repository double used by this
// package's handler tests in place of the postgres-backed
// implementation, following the teacher's pattern of testing HTTP
// handlers against a real router and an in-memory store rather than
// mocks.
type memRepository struct {
	mu   sync.Mutex
	rows map[string]storage.Record
	seq  int
}

func newMemRepository() *memRepository {
	return &memRepository{rows: make(map[string]storage.Record)}
}

func (m *memRepository) Create(ctx context.Context, id string, canonicalBytes []byte, etag string, indexed storage.IndexedFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; ok {
		return storage.ErrConflict
	}
	m.seq++
	m.rows[id] = storage.Record{ID: id, CanonicalBytes: canonicalBytes, ETag: etag}
	return nil
}

func (m *memRepository) Get(ctx context.Context, id string) (storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (m *memRepository) List(ctx context.Context, opts storage.ListOptions) (storage.ListPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]storage.Record, 0, len(ids))
	for _, id := range ids {
		items = append(items, m.rows[id])
	}
	return storage.ListPage{Items: items}, nil
}

func (m *memRepository) Replace(ctx context.Context, id string, canonicalBytes []byte, etag string, ifMatch string, indexed storage.IndexedFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[id]
	if !ok {
		return storage.ErrNotFound
	}
	if ifMatch != "" && ifMatch != "*" && ifMatch != `"`+existing.ETag+`"` {
		return storage.ErrPreconditionFailed
	}
	m.rows[id] = storage.Record{ID: id, CanonicalBytes: canonicalBytes, ETag: etag}
	return nil
}

func (m *memRepository) Delete(ctx context.Context, id string, ifMatch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[id]
	if !ok {
		return storage.ErrNotFound
	}
	if ifMatch != "" && ifMatch != "*" && ifMatch != `"`+existing.ETag+`"` {
		return storage.ErrPreconditionFailed
	}
	delete(m.rows, id)
	return nil
}
