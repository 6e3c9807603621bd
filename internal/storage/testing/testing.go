package storage_testing

import (
	"path/filepath"
	"testing"

	"memberledger/internal/storage"

	"gorm.io/gorm"
)

// CreateTestDb opens a migrated SQLite database in the test's temp dir.
func CreateTestDb(t *testing.T) *gorm.DB {
	t.Helper()

	return CreateTestDbHandles(t, 1)[0]
}

// CreateTestDbHandles opens count independent handles on one migrated SQLite
// database, the way separate processes would share it.
func CreateTestDbHandles(t *testing.T, count int) []*gorm.DB {
	t.Helper()

	dsn := "sqlite://" + filepath.Join(t.TempDir(), "test.db")

	handles := make([]*gorm.DB, 0, count)
	for i := 0; i < count; i++ {
		db, err := storage.Open(dsn)
		if err != nil {
			t.Fatalf("failed to open test database: %v", err)
		}

		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})

		handles = append(handles, db)
	}

	if err := storage.Migrate(handles[0]); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return handles
}
