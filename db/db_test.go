package db

import (
	"path/filepath"
	"testing"
)

// openTestDB opens a fresh database in a temp dir and installs it as the
// package global.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	d, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.sqlite")})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func testFile(t *testing.T, path string, createdAt int64) {
	t.Helper()

	_, err := UpsertFile(&FileRecord{
		Path:       path,
		Name:       filepath.Base(path),
		ModifiedAt: createdAt,
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("failed to upsert file %s: %v", path, err)
	}
}
