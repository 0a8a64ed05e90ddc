package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const digestColumns = "id, file_path, digester, status, content, sqlar_name, error, attempts, created_at, updated_at"

func scanDigest(row interface{ Scan(...any) error }) (Digest, error) {
	var d Digest
	var content, sqlarName, digestError sql.NullString

	err := row.Scan(
		&d.ID, &d.FilePath, &d.Digester, &d.Status, &content,
		&sqlarName, &digestError, &d.Attempts, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}

	d.Content = StringPtr(content)
	d.SqlarName = StringPtr(sqlarName)
	d.Error = StringPtr(digestError)
	return d, nil
}

// GetDigestByID retrieves a digest by ID
func GetDigestByID(id string) (*Digest, error) {
	row := GetDB().QueryRow("SELECT "+digestColumns+" FROM digests WHERE id = ?", id)

	d, err := scanDigest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDigestByFileAndDigester retrieves a specific digest
func GetDigestByFileAndDigester(filePath, digester string) (*Digest, error) {
	row := GetDB().QueryRow(
		"SELECT "+digestColumns+" FROM digests WHERE file_path = ? AND digester = ?",
		filePath, digester,
	)

	d, err := scanDigest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDigestsForFile retrieves all digests for a file
func ListDigestsForFile(filePath string) ([]Digest, error) {
	rows, err := GetDB().Query(
		"SELECT "+digestColumns+" FROM digests WHERE file_path = ? ORDER BY digester",
		filePath,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var digests []Digest
	for rows.Next() {
		d, err := scanDigest(rows)
		if err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}

	return digests, rows.Err()
}

// CreateDigest creates a new digest record
func CreateDigest(d *Digest) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := NowMs()
	if d.CreatedAt == 0 {
		d.CreatedAt = now
	}
	if d.UpdatedAt == 0 {
		d.UpdatedAt = now
	}

	_, err := GetDB().Exec(`
		INSERT INTO digests (id, file_path, digester, status, content, sqlar_name, error, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID, d.FilePath, d.Digester, d.Status, d.Content,
		d.SqlarName, d.Error, d.Attempts, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// UpsertDigestIfMissing inserts a todo placeholder row for (filePath, digester)
// unless a row already exists. Returns true if a row was inserted.
func UpsertDigestIfMissing(filePath, digester string) (bool, error) {
	now := NowMs()
	result, err := GetDB().Exec(`
		INSERT INTO digests (id, file_path, digester, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, 'todo', 0, ?, ?)
		ON CONFLICT(file_path, digester) DO NOTHING
	`, uuid.New().String(), filePath, digester, now, now)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// UpdateDigest updates an existing digest
func UpdateDigest(d *Digest) error {
	d.UpdatedAt = NowMs()

	_, err := GetDB().Exec(`
		UPDATE digests
		SET status = ?, content = ?, sqlar_name = ?, error = ?, attempts = ?, updated_at = ?
		WHERE id = ?
	`,
		d.Status, d.Content, d.SqlarName, d.Error, d.Attempts, d.UpdatedAt, d.ID,
	)
	return err
}

// DeleteDigestsForFile removes all digests for a file
func DeleteDigestsForFile(filePath string) error {
	_, err := GetDB().Exec("DELETE FROM digests WHERE file_path = ?", filePath)
	return err
}

// FilesNeedingDigests returns up to limit non-folder file paths that have at
// least one digest row needing work: digester registered, status todo or
// failed, attempts below the cap. Excluded path prefixes are filtered out.
// Ordering is oldest activity first (last_scanned_at, falling back to
// created_at).
func FilesNeedingDigests(registered []string, excludedPrefixes []string, maxAttempts, limit int) ([]string, error) {
	if len(registered) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(registered)+len(excludedPrefixes)+2)

	sb.WriteString(`
		SELECT f.path
		FROM files f
		INNER JOIN digests d ON d.file_path = f.path
		WHERE f.is_folder = 0
		  AND d.digester IN (`)
	for i, name := range registered {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		args = append(args, name)
	}
	sb.WriteString(`)
		  AND (d.status = 'todo' OR (d.status = 'failed' AND d.attempts < ?))`)
	args = append(args, maxAttempts)

	for _, prefix := range excludedPrefixes {
		sb.WriteString("\n		  AND f.path NOT LIKE ? || '%'")
		args = append(args, prefix)
	}

	sb.WriteString(`
		GROUP BY f.path
		ORDER BY COALESCE(NULLIF(f.last_scanned_at, 0), f.created_at) ASC
		LIMIT ?`)
	args = append(args, limit)

	rows, err := GetDB().Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files needing digests: %w", err)
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

// ResetStaleInProgressDigests flips in-progress rows whose updated_at is older
// than the cutoff back to todo, clearing any error. Returns the number of rows
// reclaimed. This is the crash-recovery failsafe: it is the only write allowed
// to move a row out of in-progress without holding the file lock.
func ResetStaleInProgressDigests(cutoffMs int64) (int64, error) {
	result, err := GetDB().Exec(`
		UPDATE digests
		SET status = 'todo', error = NULL, updated_at = ?
		WHERE status = 'in-progress' AND updated_at < ?
	`, NowMs(), cutoffMs)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetDigestStats returns digest counts by status and by digester
func GetDigestStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	rows, err := GetDB().Query(`
		SELECT status, COUNT(*) as count
		FROM digests
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byStatus := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		byStatus[status] = count
	}
	stats["byStatus"] = byStatus

	rows, err = GetDB().Query(`
		SELECT digester, status, COUNT(*) as count
		FROM digests
		GROUP BY digester, status
		ORDER BY digester
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDigester := make(map[string]map[string]int64)
	for rows.Next() {
		var digester, status string
		var count int64
		if err := rows.Scan(&digester, &status, &count); err != nil {
			return nil, err
		}
		if _, ok := byDigester[digester]; !ok {
			byDigester[digester] = make(map[string]int64)
		}
		byDigester[digester][status] = count
	}
	stats["byDigester"] = byDigester

	var total int64
	err = GetDB().QueryRow("SELECT COUNT(*) FROM digests").Scan(&total)
	if err != nil {
		return nil, err
	}
	stats["total"] = total

	return stats, nil
}
