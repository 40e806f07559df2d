// ABOUTME: In-process document store
// ABOUTME: Backs tests and dry runs without touching disk or network

package storage

import (
	"context"
	"maps"
	"sort"
	"sync"
)

// MemoryStore implements DocumentStore with a map guarded by a mutex.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document
}

// Compile-time check that MemoryStore implements DocumentStore.
var _ DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

// Get returns a copy of the document at path.
func (m *MemoryStore) Get(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(doc), nil
}

// Merge applies fields on top of the existing document.
func (m *MemoryStore) Merge(ctx context.Context, path string, fields Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidatePath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[path] = MergeFields(m.docs[path], fields)
	return nil
}

// Delete removes the document at path.
func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, path)
	return nil
}

// List returns sorted ids under collection.
func (m *MemoryStore) List(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	paths := make([]string, 0, len(m.docs))
	for p := range m.docs {
		paths = append(paths, p)
	}
	m.mu.Unlock()

	ids := ChildIDs(collection, paths)
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
