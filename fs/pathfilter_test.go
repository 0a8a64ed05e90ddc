package fs

import "testing"

func TestPathFilterExcludedPrefixes(t *testing.T) {
	f := NewPathFilter([]string{"app/", ".app/", ".git/", ".mylifedb/", "node_modules/"})

	excluded := []string{
		"app/index.html",
		".git/HEAD",
		".mylifedb/database.sqlite",
		"node_modules/react/index.js",
		"inbox/node_modules/x.js", // junk name anywhere in the path
		"inbox/.hidden.txt",
		"inbox/.DS_Store",
		"inbox/note.txt~",
		"inbox/._resource",
	}
	for _, path := range excluded {
		if !f.IsExcluded(path) {
			t.Errorf("expected %s to be excluded", path)
		}
	}

	included := []string{
		"inbox/note.txt",
		"inbox/sub/paper.pdf",
		"apple/note.txt", // "app/" prefix must not match "apple/"
		"notes/voice.webm",
	}
	for _, path := range included {
		if f.IsExcluded(path) {
			t.Errorf("expected %s to be included", path)
		}
	}
}

func TestPathFilterEmptyPath(t *testing.T) {
	f := NewPathFilter(nil)
	if f.IsExcluded("") || f.IsExcluded(".") {
		t.Error("empty and dot paths must not be excluded")
	}
}
