package digest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
)

// setupDB opens a fresh database in a temp dir as the process-global one
func setupDB(t *testing.T) {
	t.Helper()

	d, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "test.sqlite")})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
}

func addFile(t *testing.T, record *db.FileRecord) *db.FileRecord {
	t.Helper()

	if record.Name == "" {
		record.Name = filepath.Base(record.Path)
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = 1000
	}
	if record.ModifiedAt == 0 {
		record.ModifiedAt = record.CreatedAt
	}
	if _, err := db.UpsertFile(record); err != nil {
		t.Fatalf("failed to upsert file: %v", err)
	}
	return record
}

func strPtr(s string) *string { return &s }

// fakeDigester is a scriptable digester for coordinator tests
type fakeDigester struct {
	name    string
	outputs []string
	can     bool
	canErr  error
	run     func(ctx context.Context, file *db.FileRecord, existing []db.Digest) ([]Output, error)
}

func (f *fakeDigester) Name() string        { return f.name }
func (f *fakeDigester) Label() string       { return f.name }
func (f *fakeDigester) Description() string { return "fake digester for tests" }
func (f *fakeDigester) OutputNames() []string {
	if len(f.outputs) > 0 {
		return f.outputs
	}
	return []string{f.name}
}

func (f *fakeDigester) CanDigest(_ context.Context, _ *db.FileRecord, _ []db.Digest) (bool, error) {
	return f.can, f.canErr
}

func (f *fakeDigester) Digest(ctx context.Context, file *db.FileRecord, existing []db.Digest) ([]Output, error) {
	if f.run == nil {
		return nil, nil
	}
	return f.run(ctx, file, existing)
}

func mustRow(t *testing.T, path, name string) *db.Digest {
	t.Helper()

	row, err := db.GetDigestByFileAndDigester(path, name)
	if err != nil {
		t.Fatalf("failed to load digest row %s/%s: %v", path, name, err)
	}
	if row == nil {
		t.Fatalf("no digest row for %s/%s", path, name)
	}
	return row
}
