package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// GetFileByPath retrieves a file record by path
func GetFileByPath(path string) (*FileRecord, error) {
	query := `
		SELECT path, name, is_folder, size, mime_type, hash,
			   modified_at, created_at, last_scanned_at, text_preview, screenshot_sqlar
		FROM files
		WHERE path = ?
	`

	row := GetDB().QueryRow(query, path)

	var f FileRecord
	var isFolder int
	var size, lastScannedAt sql.NullInt64
	var hash, mimeType, textPreview, screenshotSqlar sql.NullString

	err := row.Scan(
		&f.Path, &f.Name, &isFolder, &size, &mimeType,
		&hash, &f.ModifiedAt, &f.CreatedAt, &lastScannedAt,
		&textPreview, &screenshotSqlar,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f.IsFolder = isFolder == 1
	f.Size = IntPtr(size)
	f.Hash = StringPtr(hash)
	f.MimeType = StringPtr(mimeType)
	f.TextPreview = StringPtr(textPreview)
	f.ScreenshotSqlar = StringPtr(screenshotSqlar)
	f.LastScannedAt = lastScannedAt.Int64

	return &f, nil
}

// UpsertFile inserts or updates a file record. Returns true if this was a new insert.
func UpsertFile(f *FileRecord) (bool, error) {
	// Check if file exists before upsert to determine if this is a new insert
	var existingPath string
	err := GetDB().QueryRow("SELECT path FROM files WHERE path = ?", f.Path).Scan(&existingPath)
	isNewInsert := err != nil // If error (no rows), it's a new insert

	query := `
		INSERT INTO files (path, name, is_folder, size, mime_type, hash, modified_at, created_at, last_scanned_at, text_preview, screenshot_sqlar)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			is_folder = excluded.is_folder,
			size = excluded.size,
			mime_type = excluded.mime_type,
			hash = COALESCE(NULLIF(excluded.hash, ''), files.hash),
			modified_at = excluded.modified_at,
			last_scanned_at = excluded.last_scanned_at,
			text_preview = COALESCE(excluded.text_preview, files.text_preview)
	`

	isFolder := 0
	if f.IsFolder {
		isFolder = 1
	}

	_, err = GetDB().Exec(query,
		f.Path, f.Name, isFolder, f.Size, f.MimeType,
		f.Hash, f.ModifiedAt, f.CreatedAt, f.LastScannedAt,
		f.TextPreview, f.ScreenshotSqlar,
	)
	return isNewInsert, err
}

// UpdateFileField updates a single whitelisted column on a file record
func UpdateFileField(path string, field string, value interface{}) error {
	allowedFields := map[string]bool{
		"text_preview":     true,
		"screenshot_sqlar": true,
		"hash":             true,
		"size":             true,
		"modified_at":      true,
		"last_scanned_at":  true,
	}

	if !allowedFields[field] {
		return fmt.Errorf("field %s is not allowed to be updated", field)
	}

	query := fmt.Sprintf("UPDATE files SET %s = ? WHERE path = ?", field)
	_, err := GetDB().Exec(query, value, path)
	return err
}

// ListNonFolderFilePaths returns the paths of all non-folder files
func ListNonFolderFilePaths() ([]string, error) {
	rows, err := GetDB().Query("SELECT path FROM files WHERE is_folder = 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

// MoveFileAtomic atomically moves a file record from oldPath to newPath.
// It updates the file record and ALL related tables in a single transaction:
// files, digests, file_locks, meili_documents, qdrant_documents.
func MoveFileAtomic(oldPath, newPath string, newRecord *FileRecord) error {
	tx, err := GetDB().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	isFolder := 0
	if newRecord.IsFolder {
		isFolder = 1
	}

	_, err = tx.Exec(`
		INSERT INTO files (path, name, is_folder, size, mime_type, hash, modified_at, created_at, last_scanned_at, text_preview, screenshot_sqlar)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			is_folder = excluded.is_folder,
			size = excluded.size,
			mime_type = excluded.mime_type,
			hash = COALESCE(NULLIF(excluded.hash, ''), files.hash),
			modified_at = excluded.modified_at,
			last_scanned_at = excluded.last_scanned_at,
			text_preview = COALESCE(excluded.text_preview, files.text_preview)
	`, newRecord.Path, newRecord.Name, isFolder, newRecord.Size, newRecord.MimeType,
		newRecord.Hash, newRecord.ModifiedAt, newRecord.CreatedAt, newRecord.LastScannedAt,
		newRecord.TextPreview, newRecord.ScreenshotSqlar)
	if err != nil {
		return fmt.Errorf("failed to insert new path: %w", err)
	}

	if oldPath != newPath {
		_, err = tx.Exec(`DELETE FROM files WHERE path = ?`, oldPath)
		if err != nil {
			return fmt.Errorf("failed to delete old path: %w", err)
		}
	}

	_, err = tx.Exec(`UPDATE digests SET file_path = ? WHERE file_path = ?`, newPath, oldPath)
	if err != nil {
		return fmt.Errorf("failed to update digests: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM file_locks WHERE file_path = ?`, oldPath)
	if err != nil {
		return fmt.Errorf("failed to clear file lock: %w", err)
	}

	_, err = tx.Exec(`UPDATE meili_documents SET file_path = ? WHERE file_path = ?`, newPath, oldPath)
	if err != nil {
		return fmt.Errorf("failed to update meili_documents: %w", err)
	}

	_, err = tx.Exec(`UPDATE qdrant_documents SET file_path = ? WHERE file_path = ?`, newPath, oldPath)
	if err != nil {
		return fmt.Errorf("failed to update qdrant_documents: %w", err)
	}

	return tx.Commit()
}

// DeleteFileWithCascade removes a file record and all related records in a single
// transaction: digests, file_locks, meili_documents, qdrant_documents. Blob
// artifacts under the file's sqlar prefix are removed as well.
func DeleteFileWithCascade(path string) error {
	err := Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM qdrant_documents WHERE file_path = ?", path); err != nil {
			return fmt.Errorf("failed to delete qdrant_documents: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM meili_documents WHERE file_path = ?", path); err != nil {
			return fmt.Errorf("failed to delete meili_documents: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM digests WHERE file_path = ?", path); err != nil {
			return fmt.Errorf("failed to delete digests: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM file_locks WHERE file_path = ?", path); err != nil {
			return fmt.Errorf("failed to delete file lock: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	SqlarDeletePrefix(GeneratePathHash(path) + "/")
	return nil
}

// GeneratePathHash creates a hash from a file path for stable IDs
func GeneratePathHash(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:8]) // First 16 hex chars (8 bytes)
}

// GetFileStats returns statistics about files
func GetFileStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalFiles int64
	err := GetDB().QueryRow("SELECT COUNT(*) FROM files WHERE is_folder = 0").Scan(&totalFiles)
	if err != nil {
		return nil, err
	}
	stats["totalFiles"] = totalFiles

	var totalFolders int64
	err = GetDB().QueryRow("SELECT COUNT(*) FROM files WHERE is_folder = 1").Scan(&totalFolders)
	if err != nil {
		return nil, err
	}
	stats["totalFolders"] = totalFolders

	return stats, nil
}
