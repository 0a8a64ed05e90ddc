package digest

import (
	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
)

// SelectFiles returns up to limit file paths with at least one digest row
// needing work, oldest activity first. Permanently failed and fully
// completed files never appear, regardless of how many non-actionable rows
// they still have. Folders and excluded path prefixes are filtered out.
func SelectFiles(registry *Registry, limit int) ([]string, error) {
	cfg := config.Get()
	return db.FilesNeedingDigests(
		registry.AllOutputNames(),
		cfg.ExcludedPrefixes,
		cfg.MaxDigestAttempts,
		limit,
	)
}
