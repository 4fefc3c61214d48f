// Package docstore is a small document database: JSON documents grouped in
// named collections, addressed by id, with per-document last-write-wins.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Reserved document fields
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrExists is returned when creating a document with an id already in use
	ErrExists = errors.New("document already exists")

	// ErrInvalidName is returned for collection names or ids outside [A-Za-z0-9_-]
	ErrInvalidName = errors.New("invalid collection or document id")
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Document is a JSON object. Numbers decode as float64.
type Document map[string]any

// ID returns the document id, or "" when unset
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Filter selects documents whose top-level fields equal the given values.
// An empty filter matches everything.
type Filter map[string]any

// Matches reports whether doc satisfies every condition in f
func (f Filter) Matches(doc Document) bool {
	for k, want := range f {
		got, ok := doc[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// Store is implemented by every backend
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Create(ctx context.Context, collection string, doc Document) (Document, error)
	Update(ctx context.Context, collection, id string, patch Document) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// NewID returns a fresh document id
func NewID() string {
	return uuid.NewString()
}

// Encode converts a JSON-tagged struct into a Document
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return doc, nil
}

// Decode fills a JSON-tagged struct from a Document
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}

// DecodeAll decodes a slice of documents into a slice of T
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := Decode(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func checkName(collection, id string) error {
	if !nameRe.MatchString(collection) {
		return fmt.Errorf("%w: collection %q", ErrInvalidName, collection)
	}
	if id != "" && !nameRe.MatchString(id) {
		return fmt.Errorf("%w: id %q", ErrInvalidName, id)
	}
	return nil
}

// clone deep-copies a document through its JSON form so every backend hands
// out values of the same shape
func clone(doc Document) (Document, error) {
	if doc == nil {
		return Document{}, nil
	}
	return Encode(doc)
}

// timeLayout is fixed width so timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timestamp(now time.Time) string {
	return now.UTC().Format(timeLayout)
}

// prepareCreate stamps a new document with its id and timestamps
func prepareCreate(collection string, doc Document, now time.Time) (Document, error) {
	out, err := clone(doc)
	if err != nil {
		return nil, err
	}
	if out.ID() == "" {
		out[FieldID] = NewID()
	}
	if err := checkName(collection, out.ID()); err != nil {
		return nil, err
	}
	ts := timestamp(now)
	out[FieldCreatedAt] = ts
	out[FieldUpdatedAt] = ts
	return out, nil
}

// merge applies patch over existing. id and created_at cannot be patched.
func merge(existing, patch Document, now time.Time) (Document, error) {
	out, err := clone(existing)
	if err != nil {
		return nil, err
	}
	p, err := clone(patch)
	if err != nil {
		return nil, err
	}
	for k, v := range p {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		out[k] = v
	}
	out[FieldUpdatedAt] = timestamp(now)
	return out, nil
}

// sortDocuments orders documents by creation time, then id
func sortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		ci, _ := docs[i][FieldCreatedAt].(string)
		cj, _ := docs[j][FieldCreatedAt].(string)
		if ci != cj {
			return ci < cj
		}
		return docs[i].ID() < docs[j].ID()
	})
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}
