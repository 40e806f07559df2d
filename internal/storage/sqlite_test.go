// ABOUTME: Tests for SQLite document store
// ABOUTME: Runs the shared store contract against a real database file

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *SQLiteDB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestSQLiteDB(t *testing.T) {
	runStoreTests(t, func(t *testing.T) DocumentStore {
		return testDB(t)
	})
}

func TestNewSQLiteDB_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "nested", "path")
	dbPath := filepath.Join(nestedDir, "test.db")

	db, err := NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nestedDir); os.IsNotExist(err) {
		t.Error("nested directory was not created")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file was not created: %v", err)
	}
}

func TestSQLiteDB_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	if err := db.Merge(ctx, TrackerPath("12345678"), Document{"lat": 41.8781}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	_ = db.Close()

	reopened, err := NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen db: %v", err)
	}
	defer reopened.Close()

	doc, err := reopened.Get(ctx, TrackerPath("12345678"))
	if err != nil {
		t.Fatalf("get after reopen failed: %v", err)
	}
	if doc["lat"] != 41.8781 {
		t.Errorf("expected lat 41.8781, got %v", doc["lat"])
	}
}
