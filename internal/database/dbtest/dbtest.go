// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/database"
)

// New returns a migrated database stored under t.TempDir().
// The database is closed when the test finishes.
func New(t testing.TB) *database.Database {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbPath := filepath.Join(t.TempDir(), "test_"+name+".db")

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
