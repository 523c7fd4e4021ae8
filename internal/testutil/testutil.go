// Package testutil provides shared test helpers for setting up vaults and indexes.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/nestmaid/internal/index"
	"github.com/starford/nestmaid/internal/nested"
	"github.com/starford/nestmaid/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "nestmaid-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestIndexer creates an Indexer over a temporary database.
func TestIndexer(t *testing.T, opts ...nested.Option) *index.Indexer {
	t.Helper()
	return index.NewIndexer(TestDB(t), Logger(), opts...)
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
