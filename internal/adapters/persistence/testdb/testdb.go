// Package testdb opens migrated SQLite databases for tests.
package testdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"credit-approval/internal/adapters/persistence/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a fresh in-memory SQLite database with all tables migrated.
// The pool holds a single connection so every query sees the same database.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	return open(t, "file::memory:?_busy_timeout=5000&_foreign_keys=1", 1)
}

// NewFile returns a migrated SQLite database in a temporary file whose pool
// holds up to conns connections, so transactions can run side by side.
func NewFile(t testing.TB, conns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	return open(t, fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", path), conns)
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}
