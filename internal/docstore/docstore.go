// Package docstore is the durable registry of ingested documents. The
// vector index holds the chunks; this store holds the per-document record
// used for listing, duplicate detection and deletion.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no document matches the lookup key.
var ErrNotFound = errors.New("document not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id       TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	chunk_count  INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash);
`

// Document is one registry record. ContentHash is the hex SHA-256 of the
// uploaded bytes and is the duplicate-detection key.
type Document struct {
	DocID       string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store wraps the SQLite connection. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the registry at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create docstore directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode=WAL&_pragma=synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open docstore: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping docstore: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply docstore schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the record for doc.DocID. A zero CreatedAt is
// set to the current time.
func (s *Store) Put(ctx context.Context, doc Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (doc_id, filename, content_hash, chunk_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.DocID, doc.Filename, doc.ContentHash, doc.ChunkCount, doc.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put document %s: %w", doc.DocID, err)
	}
	return nil
}

// Get returns the record for docID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, docID string) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, filename, content_hash, chunk_count, created_at
		 FROM documents WHERE doc_id = ?`, docID)
	return scanDocument(row)
}

// FindByHash returns the first record whose content hash matches, or
// ErrNotFound. Used to skip re-ingesting identical uploads.
func (s *Store) FindByHash(ctx context.Context, contentHash string) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, filename, content_hash, chunk_count, created_at
		 FROM documents WHERE content_hash = ? ORDER BY created_at LIMIT 1`, contentHash)
	return scanDocument(row)
}

// List returns all records ordered by ingestion time, newest first.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, filename, content_hash, chunk_count, created_at
		 FROM documents ORDER BY created_at DESC, doc_id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes the record for docID. Returns ErrNotFound when no row
// was deleted.
func (s *Store) Delete(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of registered documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var createdAt string
	err := row.Scan(&doc.DocID, &doc.Filename, &doc.ContentHash, &doc.ChunkCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("scan document: %w", err)
	}
	doc.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Document{}, fmt.Errorf("parse created_at: %w", err)
	}
	return doc, nil
}
