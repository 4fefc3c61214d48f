package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"realestate/internal/services/storage"
)

// FileStore persists one JSON file per document at <collection>/<id>.json
// inside a storage directory, which may be encrypted
type FileStore struct {
	storage *storage.Storage
	mu      sync.RWMutex
	clock   func() time.Time
}

// NewFileStore creates a store over an opened storage directory
func NewFileStore(s *storage.Storage) *FileStore {
	return &FileStore{storage: s, clock: time.Now}
}

func docPath(collection, id string) string {
	return filepath.Join(collection, id+".json")
}

func (f *FileStore) read(collection, id string) (Document, error) {
	data, err := f.storage.ReadFile(docPath(collection, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s/%s: %w", collection, id, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (f *FileStore) write(collection string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return f.storage.WriteFile(docPath(collection, doc.ID()), data)
}

func (f *FileStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := checkName(collection, id); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.read(collection, id)
}

func (f *FileStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := checkName(collection, ""); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	names, err := f.storage.List(collection, ".json")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}

	docs := []Document{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := f.read(collection, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		if filter.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	sortDocuments(docs)
	return docs, nil
}

func (f *FileStore) Create(ctx context.Context, collection string, doc Document) (Document, error) {
	out, err := prepareCreate(collection, doc, f.clock())
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.storage.Exists(docPath(collection, out.ID())) {
		return nil, ErrExists
	}
	if err := f.write(collection, out); err != nil {
		return nil, fmt.Errorf("writing %s/%s: %w", collection, out.ID(), err)
	}
	return out, nil
}

func (f *FileStore) Update(ctx context.Context, collection, id string, patch Document) (Document, error) {
	if err := checkName(collection, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.read(collection, id)
	if err != nil {
		return nil, err
	}
	out, err := merge(existing, patch, f.clock())
	if err != nil {
		return nil, err
	}
	if err := f.write(collection, out); err != nil {
		return nil, fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}
	return out, nil
}

func (f *FileStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkName(collection, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.storage.Remove(docPath(collection, id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return nil
}

// Close is a no-op; the storage directory stays open
func (f *FileStore) Close() error {
	return nil
}
