package fs

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Default TTL for move detection correlation.
// 500ms is enough for fsnotify to send RENAME+CREATE events for a move.
const DefaultMoveDetectorTTL = 500 * time.Millisecond

// moveDetector tracks recent RENAME events to correlate with subsequent
// CREATE events. When a file is moved, fsnotify sends a RENAME with the old
// path followed by a CREATE with the new path. Correlating the two lets us
// move the catalog records (digests included) instead of dropping and
// recomputing them.
type moveDetector struct {
	recentRenames map[string]renameInfo
	mu            sync.Mutex
	ttl           time.Duration
	dataRoot      string // For file size comparison
}

// renameInfo stores information about a recent RENAME event
type renameInfo struct {
	timestamp time.Time
	baseName  string
	size      int64 // File size at time of rename (0 if unknown)
}

// newMoveDetector creates a move detector with the specified TTL
func newMoveDetector(ttl time.Duration, dataRoot string) *moveDetector {
	return &moveDetector{
		recentRenames: make(map[string]renameInfo),
		ttl:           ttl,
		dataRoot:      dataRoot,
	}
}

// TrackRename records a RENAME event for potential move correlation.
// size should be the file size before it was renamed (0 if unknown).
func (m *moveDetector) TrackRename(oldPath string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for path, info := range m.recentRenames {
		if now.Sub(info.timestamp) > m.ttl {
			delete(m.recentRenames, path)
		}
	}

	m.recentRenames[oldPath] = renameInfo{
		timestamp: now,
		baseName:  filepath.Base(oldPath),
		size:      size,
	}
}

// CheckMove checks if a CREATE event corresponds to a recent RENAME.
// Returns the old path if this is a move. Matching requires the same base
// name, prefers the most recent rename, and requires matching sizes when
// both are known.
func (m *moveDetector) CheckMove(newPath string) (oldPath string, isMove bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newBaseName := filepath.Base(newPath)
	now := time.Now()

	var newSize int64
	if m.dataRoot != "" {
		if info, err := os.Stat(filepath.Join(m.dataRoot, newPath)); err == nil {
			newSize = info.Size()
		}
	}

	var bestMatch string
	var bestTime time.Time

	for old, info := range m.recentRenames {
		if now.Sub(info.timestamp) > m.ttl {
			delete(m.recentRenames, old)
			continue
		}
		if info.baseName != newBaseName {
			continue
		}
		if info.size > 0 && newSize > 0 && info.size != newSize {
			continue
		}
		if bestMatch == "" || info.timestamp.After(bestTime) {
			bestMatch = old
			bestTime = info.timestamp
		}
	}

	if bestMatch != "" {
		delete(m.recentRenames, bestMatch)
		return bestMatch, true
	}

	return "", false
}
