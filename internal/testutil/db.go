// Package testutil provides SQLite-backed databases for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// OpenSQLite opens an empty SQLite database file under the test's temp directory.
// The pool is limited to one connection so transactions never wait on each other.
func OpenSQLite(t *testing.T, name string) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), name+".db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// NewTargetDB opens a SQLite database with every target table created
func NewTargetDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := OpenSQLite(t, "target")
	require.NoError(t, db.AutoMigrate(schema.Models()...))
	return db
}

// NewSourceDB opens an empty SQLite database standing in for a WordPress install
func NewSourceDB(t *testing.T) *gorm.DB {
	t.Helper()
	return OpenSQLite(t, "wordpress")
}
