package fs

import "time"

// FileChangeEvent notifies about file system changes
type FileChangeEvent struct {
	FilePath       string
	IsNew          bool
	ContentChanged bool // Hash differs from previous
	// ShouldInvalidateDigests is set when an existing file's content changed:
	// derived digests no longer describe the bytes on disk.
	ShouldInvalidateDigests bool
	Trigger                 string // "fsnotify" or "scan"
}

// FileChangeHandler is called when files change (used by the digest supervisor)
type FileChangeHandler func(event FileChangeEvent)

// Config contains configuration for the FS service
type Config struct {
	DataRoot     string
	ScanInterval time.Duration // How often to scan for external changes
	WatchEnabled bool          // Enable filesystem watching
}

// MetadataResult contains computed file metadata
type MetadataResult struct {
	Hash        string  // SHA-256 hex
	TextPreview *string // First 60 lines of text (if applicable)
	Size        int64   // File size in bytes
}
