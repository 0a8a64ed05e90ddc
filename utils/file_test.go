package utils

import (
	"strings"
	"testing"
)

func TestIsTextFile(t *testing.T) {
	textPlain := "text/plain"
	octet := "application/octet-stream"
	jsonMime := "application/json"

	cases := []struct {
		mime     *string
		filename string
		want     bool
	}{
		{&textPlain, "note.bin", true},
		{&jsonMime, "data.bin", true},
		{&octet, "data.bin", false},
		{nil, "note.txt", true},
		{nil, "README.md", true},
		{nil, "main.go", true},
		{nil, "photo.jpg", false},
		{&octet, "script.sh", true}, // extension wins even with a binary MIME
	}

	for _, tc := range cases {
		if got := IsTextFile(tc.mime, tc.filename); got != tc.want {
			t.Errorf("IsTextFile(%v, %s) = %v, want %v", tc.mime, tc.filename, got, tc.want)
		}
	}
}

func TestDetectMimeType(t *testing.T) {
	cases := map[string]string{
		"paper.pdf":  "application/pdf",
		"book.epub":  "application/epub+zip",
		"pic.HEIC":   "image/heic",
		"voice.webm": "video/webm",
		"note.txt":   "text/plain",
		"weird.xyz":  "application/octet-stream",
	}

	for filename, want := range cases {
		if got := DetectMimeType(filename); got != want {
			t.Errorf("DetectMimeType(%s) = %s, want %s", filename, got, want)
		}
	}
}

func TestComputeFileHash(t *testing.T) {
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	got, err := ComputeFileHash(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("hash mismatch: got %s", got)
	}
}
