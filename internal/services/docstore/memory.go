package docstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]map[string]Document
	clock func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]map[string]Document),
		clock: time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := checkName(collection, id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc)
}

func (m *MemoryStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := checkName(collection, ""); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := []Document{}
	for _, doc := range m.data[collection] {
		if !filter.Matches(doc) {
			continue
		}
		c, err := clone(doc)
		if err != nil {
			return nil, err
		}
		docs = append(docs, c)
	}
	sortDocuments(docs)
	return docs, nil
}

func (m *MemoryStore) Create(ctx context.Context, collection string, doc Document) (Document, error) {
	out, err := prepareCreate(collection, doc, m.clock())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.data[collection]
	if !ok {
		coll = make(map[string]Document)
		m.data[collection] = coll
	}
	if _, exists := coll[out.ID()]; exists {
		return nil, ErrExists
	}
	coll[out.ID()] = out
	return clone(out)
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, patch Document) (Document, error) {
	if err := checkName(collection, id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	out, err := merge(existing, patch, m.clock())
	if err != nil {
		return nil, err
	}
	m.data[collection][id] = out
	return clone(out)
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkName(collection, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[collection], id)
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
