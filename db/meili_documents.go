package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MeiliDocument represents a document staged for keyword indexing
type MeiliDocument struct {
	DocumentID     string
	FilePath       string
	Content        string
	Summary        *string
	Tags           *string
	ContentHash    string
	WordCount      int
	MimeType       *string
	MetadataJSON   *string
	MeiliStatus    string
	MeiliTaskID    *string
	MeiliIndexedAt *string
	MeiliError     *string
	CreatedAt      string
	UpdatedAt      string
}

const meiliColumns = `document_id, file_path, content, summary, tags, content_hash,
	word_count, mime_type, metadata_json, meili_status, meili_task_id,
	meili_indexed_at, meili_error, created_at, updated_at`

func scanMeiliDocument(row interface{ Scan(...any) error }) (MeiliDocument, error) {
	var doc MeiliDocument
	err := row.Scan(
		&doc.DocumentID, &doc.FilePath, &doc.Content, &doc.Summary, &doc.Tags,
		&doc.ContentHash, &doc.WordCount, &doc.MimeType, &doc.MetadataJSON,
		&doc.MeiliStatus, &doc.MeiliTaskID, &doc.MeiliIndexedAt, &doc.MeiliError,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	return doc, err
}

// UpsertMeiliDocument creates or updates the keyword document for a file.
// When the content hash is unchanged the row is left alone so the indexer
// does not re-push identical content.
func UpsertMeiliDocument(doc *MeiliDocument) error {
	db := GetDB()
	now := time.Now().UTC().Format(time.RFC3339)

	var existing MeiliDocument
	err := db.QueryRow(`
		SELECT document_id, content_hash
		FROM meili_documents
		WHERE file_path = ?
	`, doc.FilePath).Scan(&existing.DocumentID, &existing.ContentHash)

	if err == sql.ErrNoRows {
		if doc.DocumentID == "" {
			doc.DocumentID = uuid.New().String()
		}

		_, err = db.Exec(`
			INSERT INTO meili_documents (
				document_id, file_path, content, summary, tags, content_hash,
				word_count, mime_type, metadata_json, meili_status,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)
		`,
			doc.DocumentID, doc.FilePath, doc.Content, doc.Summary, doc.Tags,
			doc.ContentHash, doc.WordCount, doc.MimeType, doc.MetadataJSON, now, now,
		)
		return err
	}

	if err != nil {
		return err
	}

	doc.DocumentID = existing.DocumentID
	if existing.ContentHash == doc.ContentHash {
		// Content unchanged, skip update
		return nil
	}

	_, err = db.Exec(`
		UPDATE meili_documents SET
			content = ?, summary = ?, tags = ?, content_hash = ?, word_count = ?,
			mime_type = ?, metadata_json = ?, meili_status = 'pending',
			meili_error = NULL, updated_at = ?
		WHERE document_id = ?
	`,
		doc.Content, doc.Summary, doc.Tags, doc.ContentHash, doc.WordCount,
		doc.MimeType, doc.MetadataJSON, now, existing.DocumentID,
	)
	return err
}

// GetMeiliDocumentByFilePath returns the document for a file
func GetMeiliDocumentByFilePath(filePath string) (*MeiliDocument, error) {
	row := GetDB().QueryRow(
		"SELECT "+meiliColumns+" FROM meili_documents WHERE file_path = ?", filePath)

	doc, err := scanMeiliDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetMeiliDocumentsByIDs returns the documents with the given ids
func GetMeiliDocumentsByIDs(documentIDs []string) ([]MeiliDocument, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(documentIDs)), ", ")
	args := make([]interface{}, len(documentIDs))
	for i, id := range documentIDs {
		args[i] = id
	}

	rows, err := GetDB().Query(
		"SELECT "+meiliColumns+" FROM meili_documents WHERE document_id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []MeiliDocument
	for rows.Next() {
		doc, err := scanMeiliDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// UpdateMeiliStatus updates the meilisearch status of a document
func UpdateMeiliStatus(documentID, status string, taskID *string, errorMsg *string) error {
	db := GetDB()
	now := time.Now().UTC().Format(time.RFC3339)

	var indexedAt *string
	if status == "indexed" {
		indexedAt = &now
	}

	_, err := db.Exec(`
		UPDATE meili_documents SET
			meili_status = ?,
			meili_task_id = ?,
			meili_indexed_at = ?,
			meili_error = ?,
			updated_at = ?
		WHERE document_id = ?
	`, status, taskID, indexedAt, errorMsg, now, documentID)

	return err
}
