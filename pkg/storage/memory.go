package storage

import (
	"context"
	"errors"
	"sync"
)

type collection struct {
	order []string
	docs  map[string]Document
}

// MemoryStore keeps records in process, ordered by first insertion.
// Reads return copies so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[Kind]*collection
	closed      bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[Kind]*collection)}
}

var errClosed = errors.New("store is closed")

// FetchTenantCollection returns every record of kind owned by tenantID
func (m *MemoryStore) FetchTenantCollection(ctx context.Context, tenantID string, kind Kind) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}

	c, ok := m.collections[kind]
	if !ok {
		return []Document{}, nil
	}

	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		d := c.docs[id]
		if d.TenantID == tenantID {
			docs = append(docs, cloneDocument(d))
		}
	}
	return docs, nil
}

// FetchRecord returns a record by id
func (m *MemoryStore) FetchRecord(ctx context.Context, kind Kind, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Document{}, errClosed
	}

	c, ok := m.collections[kind]
	if !ok {
		return Document{}, ErrNotFound
	}
	d, ok := c.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(d), nil
}

// WriteRecord inserts or replaces a record. A replaced record keeps its position.
func (m *MemoryStore) WriteRecord(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if doc.Kind == "" || doc.ID == "" {
		return Document{}, errors.New("document kind and id are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Document{}, errClosed
	}

	c, ok := m.collections[doc.Kind]
	if !ok {
		c = &collection{docs: make(map[string]Document)}
		m.collections[doc.Kind] = c
	}
	if _, exists := c.docs[doc.ID]; !exists {
		c.order = append(c.order, doc.ID)
	}
	stored := cloneDocument(doc)
	c.docs[doc.ID] = stored
	return cloneDocument(stored), nil
}

// DeleteRecord removes a record
func (m *MemoryStore) DeleteRecord(ctx context.Context, kind Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}

	c, ok := m.collections[kind]
	if !ok {
		return ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Stats returns the number of records per kind
func (m *MemoryStore) Stats(ctx context.Context) (map[Kind]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}

	stats := make(map[Kind]int, len(Kinds()))
	for _, k := range Kinds() {
		stats[k] = 0
	}
	for k, c := range m.collections {
		stats[k] = len(c.docs)
	}
	return stats, nil
}

// Ping reports whether the store is open
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return ctx.Err()
}

// Close releases the store. Further calls fail.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.collections = nil
	return nil
}

func cloneDocument(d Document) Document {
	out := d
	if d.Data != nil {
		out.Data = append([]byte(nil), d.Data...)
	}
	return out
}
