package digest

import (
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

// EnsurePlaceholders creates a todo digest row for every registered output
// name the file does not have yet, and quarantines non-terminal rows whose
// digester is no longer registered. Idempotent; called when a file enters the
// catalog and once per file at startup.
func EnsurePlaceholders(registry *Registry, filePath string) (added int, orphaned int, err error) {
	registered := make(map[string]bool)
	for _, name := range registry.AllOutputNames() {
		registered[name] = true
	}

	existing, err := db.ListDigestsForFile(filePath)
	if err != nil {
		return 0, 0, err
	}

	existingNames := make(map[string]bool, len(existing))
	for _, row := range existing {
		existingNames[row.Digester] = true
	}

	// Add missing placeholders
	for name := range registered {
		if existingNames[name] {
			continue
		}
		inserted, err := db.UpsertDigestIfMissing(filePath, name)
		if err != nil {
			return added, orphaned, err
		}
		if inserted {
			added++
		}
	}

	// Quarantine rows whose digester went away
	for _, row := range existing {
		if registered[row.Digester] {
			continue
		}
		if row.Status != db.DigestStatusTodo && row.Status != db.DigestStatusFailed {
			continue
		}
		reason := reasonNotRegistered
		row.Status = db.DigestStatusSkipped
		row.Error = &reason
		row.Attempts = 0
		if err := db.UpdateDigest(&row); err != nil {
			return added, orphaned, err
		}
		orphaned++
	}

	if added > 0 || orphaned > 0 {
		log.Info().
			Str("path", filePath).
			Int("added", added).
			Int("orphaned", orphaned).
			Msg("ensured digest placeholders")
	}

	return added, orphaned, nil
}

// EnsureAllFiles runs EnsurePlaceholders over every non-folder file. Called
// once at startup to backfill files created before a digester existed.
func EnsureAllFiles(registry *Registry) error {
	paths, err := db.ListNonFolderFilePaths()
	if err != nil {
		return err
	}

	totalAdded := 0
	totalOrphaned := 0
	for _, path := range paths {
		added, orphaned, err := EnsurePlaceholders(registry, path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to ensure digest placeholders")
			continue
		}
		totalAdded += added
		totalOrphaned += orphaned
	}

	log.Info().
		Int("files", len(paths)).
		Int("added", totalAdded).
		Int("orphaned", totalOrphaned).
		Msg("digest placeholder backfill complete")

	return nil
}
