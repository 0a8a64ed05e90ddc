package db

import (
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

// TryAcquireFileLock attempts to take the advisory lock for a file path.
// Acquisition is non-blocking: the caller either becomes the owner or is
// refused. A refusal is normal control flow, not an error.
func TryAcquireFileLock(filePath, owner string) (bool, error) {
	result, err := GetDB().Exec(`
		INSERT INTO file_locks (file_path, owner, acquired_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO NOTHING
	`, filePath, owner, NowMs())
	if err != nil {
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseFileLock releases the advisory lock for a file path. Releasing a lock
// that is not held is a no-op.
func ReleaseFileLock(filePath string) error {
	_, err := GetDB().Exec("DELETE FROM file_locks WHERE file_path = ?", filePath)
	return err
}

// ReleaseStaleFileLocks removes locks acquired before the cutoff. Covers the
// case where a worker died between acquire and release.
func ReleaseStaleFileLocks(cutoffMs int64) (int64, error) {
	result, err := GetDB().Exec("DELETE FROM file_locks WHERE acquired_at < ?", cutoffMs)
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	if n > 0 {
		log.Warn().Int64("count", n).Msg("released stale file locks")
	}
	return n, err
}
