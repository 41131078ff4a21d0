// Package dbtest opens a throwaway SQLite database for tests that go through
// the global database connection.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/gamerfie/game-vault/database"
)

// Setup initializes database.DB on a migrated SQLite file inside t.TempDir
// and closes it when the test finishes. Tests using it must not run in parallel.
func Setup(t testing.TB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	if err := database.Init(database.Config{Type: database.DBTypeSQLite, SQLitePath: path}); err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}

	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})
}
