// ABOUTME: SQLite document store implementation
// ABOUTME: Provides local-only persistence using pure Go SQLite driver

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB implements DocumentStore with a local SQLite database.
type SQLiteDB struct {
	db *sql.DB
}

// Compile-time check that SQLiteDB implements DocumentStore.
var _ DocumentStore = (*SQLiteDB)(nil)

// NewSQLiteDB creates a new SQLite database at the given path.
// Creates the directory and database file if they don't exist.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteDB{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// migrate creates or updates the database schema.
func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Get retrieves the document stored at path.
func (s *SQLiteDB) Get(ctx context.Context, path string) (Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decodeDocument([]byte(data))
}

// Merge reads, merges, and writes the document in one transaction.
func (s *SQLiteDB) Merge(ctx context.Context, path string, fields Document) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing := Document{}
	var data string
	err = tx.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", path).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read document: %w", err)
	default:
		if existing, err = decodeDocument([]byte(data)); err != nil {
			return err
		}
	}

	encoded, err := json.Marshal(MergeFields(existing, fields))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, path, string(encoded), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	return tx.Commit()
}

// Delete removes the document at path.
func (s *SQLiteDB) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// List returns the ids of documents directly under collection.
func (s *SQLiteDB) List(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM documents WHERE path LIKE ? ORDER BY path", collection+"/%")
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := ChildIDs(collection, paths)
	sort.Strings(ids)
	return ids, nil
}

func decodeDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
