package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(collection, created_at);
`

// SQLiteStore keeps documents as JSON text in a single SQLite table
type SQLiteStore struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenSQLite opens or creates the database at dbPath
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer keeps read-modify-write updates serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, clock: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := checkName(collection, id); err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, collection, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, q queryer, collection, id string) (Document, error) {
	var body string
	err := q.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND id = ?", collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", collection, id, err)
	}
	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("parsing %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := checkName(collection, ""); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM documents WHERE collection = ? ORDER BY created_at, id", collection)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	docs := []Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("parsing %s document: %w", collection, err)
		}
		if filter.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, collection string, doc Document) (Document, error) {
	out, err := prepareCreate(collection, doc, s.clock())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (collection, id, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		collection, out.ID(), string(body), out[FieldCreatedAt], out[FieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("inserting %s/%s: %w", collection, out.ID(), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrExists
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, patch Document) (Document, error) {
	if err := checkName(collection, id); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := s.get(ctx, tx, collection, id)
	if err != nil {
		return nil, err
	}
	out, err := merge(existing, patch, s.clock())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(body), out[FieldUpdatedAt], collection, id,
	); err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkName(collection, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
