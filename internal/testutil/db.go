// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/muni_commerce/internal/database"
)

// NewTestDB opens a migrated SQLite store in a temporary directory.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.RunMigrations(db), "migrate test database")
	return db
}

// Count returns the number of rows in table.
func Count(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}
