package fs

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/utils"
)

// Service watches the data root, keeps the file catalog in sync with disk,
// and emits FileChangeEvents for the digest supervisor.
type Service struct {
	cfg          Config
	filter       *PathFilter
	handler      FileChangeHandler
	watcher      *fsnotify.Watcher
	debouncer    *debouncer
	moveDetector *moveDetector
	scanner      *scanner
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewService creates the FS service
func NewService(cfg Config, excludedPrefixes []string) *Service {
	s := &Service{
		cfg:      cfg,
		filter:   NewPathFilter(excludedPrefixes),
		stopChan: make(chan struct{}),
	}
	s.debouncer = newDebouncer(DefaultDebounceDelay, s.processDebounced)
	s.moveDetector = newMoveDetector(DefaultMoveDetectorTTL, cfg.DataRoot)
	s.scanner = newScanner(s)
	return s
}

// SetFileChangeHandler registers the change event consumer. Must be called
// before Start.
func (s *Service) SetFileChangeHandler(h FileChangeHandler) {
	s.handler = h
}

// Start begins watching and scanning
func (s *Service) Start() error {
	if s.cfg.WatchEnabled {
		var err error
		s.watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return err
		}

		if err := s.watchRecursive(s.cfg.DataRoot); err != nil {
			log.Error().Err(err).Msg("failed to watch data directory")
			return err
		}

		s.wg.Add(1)
		go s.eventLoop()

		log.Info().Str("dataRoot", s.cfg.DataRoot).Msg("filesystem watcher started")
	}

	s.scanner.Start()
	return nil
}

// Stop stops the watcher and scanner
func (s *Service) Stop() {
	close(s.stopChan)
	s.scanner.Stop()
	s.debouncer.Stop()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.wg.Wait()
	log.Info().Msg("filesystem service stopped")
}

// watchRecursive adds all directories under root to the watcher
func (s *Service) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		relPath, _ := filepath.Rel(s.cfg.DataRoot, path)
		if s.filter.IsExcluded(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if err := s.watcher.Add(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
			}
		}

		return nil
	})
}

// eventLoop processes filesystem events
func (s *Service) eventLoop() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watcher error")

		case <-s.stopChan:
			return
		}
	}
}

// handleEvent routes a single fsnotify event through the debouncer
func (s *Service) handleEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(s.cfg.DataRoot, event.Name)
	if err != nil {
		return
	}

	if s.filter.IsExcluded(relPath) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// File gone from this path: both Remove and Rename mean that
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			if event.Op&fsnotify.Rename != 0 {
				// Remember size for move correlation
				var size int64
				if existing, _ := db.GetFileByPath(relPath); existing != nil && existing.Size != nil {
					size = *existing.Size
				}
				s.moveDetector.TrackRename(relPath, size)
			}
			s.debouncer.Queue(relPath, EventDelete)
		}
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			s.watcher.Add(event.Name)
		}
		return
	}

	if event.Op&fsnotify.Create != 0 {
		s.debouncer.Queue(relPath, EventCreate)
	} else if event.Op&fsnotify.Write != 0 {
		s.debouncer.Queue(relPath, EventWrite)
	}
}

// processDebounced is called by the debouncer when an event is ready
func (s *Service) processDebounced(path string, eventType EventType) {
	switch eventType {
	case EventCreate:
		if oldPath, isMove := s.moveDetector.CheckMove(path); isMove {
			s.processMove(oldPath, path)
			return
		}
		s.processFile(path, "fsnotify")
	case EventWrite:
		s.processFile(path, "fsnotify")
	case EventDelete:
		s.processDelete(path)
	}
}

// processFile stats a file, refreshes its catalog record, and emits a change
// event describing what happened.
func (s *Service) processFile(path string, trigger string) {
	fullPath := filepath.Join(s.cfg.DataRoot, path)
	info, err := os.Stat(fullPath)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to stat file")
		return
	}
	if info.IsDir() {
		return
	}

	existing, err := db.GetFileByPath(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to load file record")
		return
	}

	oldHash := ""
	if existing != nil && existing.Hash != nil {
		oldHash = *existing.Hash
	}

	metadata, err := ComputeMetadata(s.cfg.DataRoot, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to compute metadata")
		return
	}

	now := db.NowMs()
	mime := utils.DetectMimeType(path)
	size := metadata.Size

	record := &db.FileRecord{
		Path:          path,
		Name:          filepath.Base(path),
		IsFolder:      false,
		Size:          &size,
		MimeType:      &mime,
		Hash:          &metadata.Hash,
		ModifiedAt:    info.ModTime().UnixMilli(),
		CreatedAt:     now,
		LastScannedAt: now,
		TextPreview:   metadata.TextPreview,
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	isNew, err := db.UpsertFile(record)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to upsert file record")
		return
	}

	contentChanged := oldHash != metadata.Hash

	log.Debug().
		Str("path", path).
		Bool("isNew", isNew).
		Bool("contentChanged", contentChanged).
		Str("trigger", trigger).
		Msg("file record refreshed")

	s.emit(FileChangeEvent{
		FilePath:                path,
		IsNew:                   isNew,
		ContentChanged:          contentChanged,
		ShouldInvalidateDigests: contentChanged && !isNew,
		Trigger:                 trigger,
	})
}

// processMove moves the catalog records from oldPath to newPath, preserving
// digests and search staging rows.
func (s *Service) processMove(oldPath, newPath string) {
	log.Info().Str("oldPath", oldPath).Str("newPath", newPath).Msg("detected external file move")

	fullPath := filepath.Join(s.cfg.DataRoot, newPath)
	info, err := os.Stat(fullPath)
	if err != nil {
		return
	}

	existing, _ := db.GetFileByPath(oldPath)

	metadata, err := ComputeMetadata(s.cfg.DataRoot, newPath)
	if err != nil {
		log.Warn().Err(err).Str("path", newPath).Msg("failed to compute metadata for moved file")
		return
	}

	now := db.NowMs()
	mime := utils.DetectMimeType(newPath)
	size := metadata.Size

	record := &db.FileRecord{
		Path:          newPath,
		Name:          filepath.Base(newPath),
		IsFolder:      false,
		Size:          &size,
		MimeType:      &mime,
		Hash:          &metadata.Hash,
		ModifiedAt:    info.ModTime().UnixMilli(),
		CreatedAt:     now,
		LastScannedAt: now,
		TextPreview:   metadata.TextPreview,
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
		record.ScreenshotSqlar = existing.ScreenshotSqlar
	}

	if err := db.MoveFileAtomic(oldPath, newPath, record); err != nil {
		log.Error().Err(err).Str("oldPath", oldPath).Str("newPath", newPath).Msg("failed to move file records")
		return
	}

	// Content did not change; digests moved with the file
	s.emit(FileChangeEvent{
		FilePath: newPath,
		Trigger:  "fsnotify",
	})
}

// processDelete removes the file and everything derived from it
func (s *Service) processDelete(path string) {
	log.Info().Str("path", path).Msg("detected external file deletion")

	if err := db.DeleteFileWithCascade(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to delete file records")
	}
}

// emit delivers an event to the registered handler
func (s *Service) emit(event FileChangeEvent) {
	if s.handler != nil {
		s.handler(event)
	}
}
