package fs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

const (
	// Default scan interval
	defaultScanInterval = 1 * time.Hour

	// Initial scan delay after startup
	initialScanDelay = 10 * time.Second
)

// scanner reconciles the catalog with the filesystem: it picks up files the
// watcher missed, stamps last_scanned_at, and removes records for files that
// no longer exist on disk.
type scanner struct {
	service  *Service
	interval time.Duration
	stopChan chan struct{}
}

// newScanner creates a filesystem scanner
func newScanner(service *Service) *scanner {
	interval := service.cfg.ScanInterval
	if interval == 0 {
		interval = defaultScanInterval
	}
	return &scanner{
		service:  service,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins periodic scanning
func (s *scanner) Start() {
	log.Info().Dur("interval", s.interval).Msg("starting filesystem scanner")

	s.service.wg.Add(1)
	go func() {
		defer s.service.wg.Done()

		// Initial scan after a short delay
		initial := time.NewTimer(initialScanDelay)
		defer initial.Stop()
		select {
		case <-initial.C:
			s.scan()
		case <-s.stopChan:
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.scan()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop stops the scanner
func (s *scanner) Stop() {
	close(s.stopChan)
}

// scan performs a full reconciliation pass
func (s *scanner) scan() {
	root := s.service.cfg.DataRoot
	log.Info().Str("root", root).Msg("starting filesystem scan")
	startTime := time.Now()

	seen := make(map[string]bool)
	scanned := 0
	changed := 0

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil || relPath == "." {
			return nil
		}

		if s.service.filter.IsExcluded(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		relPath = filepath.ToSlash(relPath)
		seen[relPath] = true
		scanned++

		existing, err := db.GetFileByPath(relPath)
		if err != nil {
			return nil
		}

		if existing == nil || existing.ModifiedAt != info.ModTime().UnixMilli() {
			s.service.processFile(relPath, "scan")
			changed++
			return nil
		}

		// Unchanged: just record that we looked
		if err := db.UpdateFileField(relPath, "last_scanned_at", db.NowMs()); err != nil {
			log.Warn().Err(err).Str("path", relPath).Msg("failed to stamp last_scanned_at")
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("filesystem scan failed")
		return
	}

	// Remove records for files gone from disk
	removed := 0
	paths, err := db.ListNonFolderFilePaths()
	if err == nil {
		for _, path := range paths {
			if seen[path] {
				continue
			}
			if err := db.DeleteFileWithCascade(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to remove stale file record")
				continue
			}
			removed++
		}
	}

	log.Info().
		Int("scanned", scanned).
		Int("changed", changed).
		Int("removed", removed).
		Dur("elapsed", time.Since(startTime)).
		Msg("filesystem scan complete")
}
