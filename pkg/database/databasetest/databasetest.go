// Package databasetest opens throwaway migrated databases for tests.
package databasetest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/backoffice/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns an in-memory SQLite database with every migration applied. Each call gets
// its own database. A single connection is kept open, so code under test must not use
// the outer handle while a transaction is running.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := database.Open(sqlite.Open(dsn), logger.Silent)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}
