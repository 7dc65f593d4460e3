package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/GTDGit/muni_commerce/internal/config"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := &appconfig.DatabaseConfig{
		Driver:       DriverSQLite,
		FallbackPath: filepath.Join(t.TempDir(), "commerce.db"),
	}

	res, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { res.DB.Close() })

	assert.Equal(t, DriverSQLite, res.Driver)
	assert.False(t, res.FellBack())

	require.NoError(t, RunMigrations(res.DB))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(res.DB))

	for _, table := range []string{"products", "postings", "feature_flag", "admin_log", "rate_limit"} {
		var n int
		err := res.DB.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestConnectNilConfig(t *testing.T) {
	_, err := Connect(nil)
	assert.Error(t, err)
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
