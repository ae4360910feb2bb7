package persistence

import (
	"testing"

	"github.com/salesbi/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

// newSQLiteDatabase opens a migrated in-memory database private to the test
func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())
	return db
}
