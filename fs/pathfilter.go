package fs

import (
	"path/filepath"
	"strings"
)

// PathFilter decides which paths the pipeline ignores: the configured
// excluded prefixes plus hidden files and OS junk anywhere in the path.
type PathFilter struct {
	excludedPrefixes []string
}

// NewPathFilter creates a filter for the given excluded path prefixes
// (e.g. "app/", ".git/", "node_modules/").
func NewPathFilter(excludedPrefixes []string) *PathFilter {
	return &PathFilter{excludedPrefixes: excludedPrefixes}
}

// Names that are junk regardless of where they appear
var junkNames = map[string]bool{
	".ds_store":    true,
	".appledouble": true,
	"thumbs.db":    true,
	"desktop.ini":  true,
	"node_modules": true,
	"__pycache__":  true,
	"lost+found":   true,
}

// IsExcluded checks if a path should be excluded
func (f *PathFilter) IsExcluded(path string) bool {
	path = filepath.ToSlash(path)
	if path == "" || path == "." {
		return false
	}

	for _, prefix := range f.excludedPrefixes {
		if strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}

	for _, part := range strings.Split(path, "/") {
		if part == "" || part == "." {
			continue
		}
		lower := strings.ToLower(part)
		if junkNames[lower] {
			return true
		}
		// Hidden files and dirs, macOS resource forks, editor temp files
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "._") ||
			strings.HasPrefix(part, "~") || strings.HasSuffix(part, "~") {
			return true
		}
	}

	return false
}
