package db

import (
	"bytes"
	"testing"
)

func TestSqlarStoreGetRoundTrip(t *testing.T) {
	openTestDB(t)

	data := []byte("hello sqlar, this compresses fine")
	if !SqlarStore("abc123/tags/blob.bin", data, 0) {
		t.Fatal("store failed")
	}

	got := SqlarGet("abc123/tags/blob.bin")
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: got %q", got)
	}

	if !SqlarExists("abc123/tags/blob.bin") {
		t.Error("expected blob to exist")
	}
	if SqlarExists("abc123/tags/missing.bin") {
		t.Error("did not expect missing blob to exist")
	}
	if got := SqlarGet("abc123/tags/missing.bin"); got != nil {
		t.Errorf("expected nil for missing blob, got %q", got)
	}
}

func TestSqlarPrefixListAndDelete(t *testing.T) {
	openTestDB(t)

	SqlarStore("hash1/shot/a.png", []byte("a"), 0)
	SqlarStore("hash1/shot/b.png", []byte("b"), 0)
	SqlarStore("hash1/other/c.png", []byte("c"), 0)
	SqlarStore("hash2/shot/d.png", []byte("d"), 0)

	files := SqlarList("hash1/shot/")
	if len(files) != 2 {
		t.Fatalf("expected 2 files under hash1/shot/, got %d", len(files))
	}

	deleted := SqlarDeletePrefix("hash1/")
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	if SqlarExists("hash1/shot/a.png") {
		t.Error("expected hash1 blobs gone")
	}
	if !SqlarExists("hash2/shot/d.png") {
		t.Error("expected hash2 blob untouched")
	}
}
