// Package testing provides testing utilities and helpers for the holdfast project.
package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/holdfast/holdfast/internal/database"
)

// NewTestDB creates a temp-file SQLite database with the schema for name
// applied ("ledger" or "client_data"). It is closed when the test ends.
// The returned cleanup func is idempotent.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	profile := database.ProfileStandard
	switch name {
	case database.NameLedger:
		profile = database.ProfileLedger
	case database.NameClientData:
		profile = database.ProfileCache
	}

	path := filepath.Join(t.TempDir(), fmt.Sprintf("test_%s.db", name))
	db, err := database.New(database.Config{
		Path:    path,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
	t.Cleanup(cleanup)

	return db, cleanup
}
