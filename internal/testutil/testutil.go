// Package testutil provides shared test helpers for setting up databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/docstore"
	"github.com/starford/raido/internal/schema"
)

// TestStore creates a temporary SQLite document store with the default
// kinds that is automatically cleaned up.
func TestStore(t *testing.T) *docstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := docstore.Open(dbFile.Name(), schema.Default())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
