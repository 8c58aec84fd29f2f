// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/internal/database"
	"pharmalink/m/internal/migrations"
)

// New returns a migrated database that is closed when the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "pharmalink_test.db") + "?_pragma=foreign_keys(1)"
	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
