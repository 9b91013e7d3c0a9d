package httpapi

import (
	"context"
	"sync"

	"github.com/titan-aas/titan-aas/internal/blobstore"
)

// memMetadataStore is an in-memory blobstore.MetadataStore double.
type memMetadataStore struct {
	mu   sync.Mutex
	rows map[string]blobstore.Metadata
}

func newMemMetadataStore() *memMetadataStore {
	return &memMetadataStore{rows: make(map[string]blobstore.Metadata)}
}

func (m *memMetadataStore) Put(ctx context.Context, meta blobstore.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[meta.ID] = meta
	return nil
}

func (m *memMetadataStore) Get(ctx context.Context, id string) (blobstore.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.rows[id]
	if !ok {
		return blobstore.Metadata{}, blobstore.ErrMetadataNotFound
	}
	return meta, nil
}

func (m *memMetadataStore) DeleteBySubmodel(ctx context.Context, submodelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, meta := range m.rows {
		if meta.SubmodelID == submodelID {
			delete(m.rows, id)
		}
	}
	return nil
}
