package db

import (
	"database/sql"
	"strings"
	"time"
)

// QdrantDocument represents a content chunk staged for vector indexing
type QdrantDocument struct {
	DocumentID       string
	FilePath         string
	SourceType       string
	ChunkIndex       int
	ChunkCount       int
	ChunkText        string
	SpanStart        int
	SpanEnd          int
	OverlapTokens    int
	WordCount        int
	TokenCount       int
	ContentHash      string
	MetadataJSON     *string
	EmbeddingStatus  string
	EmbeddingVersion int
	QdrantPointID    *string
	QdrantIndexedAt  *string
	QdrantError      *string
	CreatedAt        string
	UpdatedAt        string
}

const qdrantColumns = `document_id, file_path, source_type, chunk_index, chunk_count,
	chunk_text, span_start, span_end, overlap_tokens, word_count,
	token_count, content_hash, metadata_json, embedding_status,
	embedding_version, qdrant_point_id, qdrant_indexed_at, qdrant_error,
	created_at, updated_at`

func scanQdrantDocument(row interface{ Scan(...any) error }) (QdrantDocument, error) {
	var doc QdrantDocument
	err := row.Scan(
		&doc.DocumentID, &doc.FilePath, &doc.SourceType, &doc.ChunkIndex, &doc.ChunkCount,
		&doc.ChunkText, &doc.SpanStart, &doc.SpanEnd, &doc.OverlapTokens, &doc.WordCount,
		&doc.TokenCount, &doc.ContentHash, &doc.MetadataJSON, &doc.EmbeddingStatus,
		&doc.EmbeddingVersion, &doc.QdrantPointID, &doc.QdrantIndexedAt, &doc.QdrantError,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	return doc, err
}

// UpsertQdrantDocument creates or updates a chunk row, resetting its embedding
// status to pending so the indexer picks it up again.
func UpsertQdrantDocument(doc *QdrantDocument) error {
	db := GetDB()
	now := time.Now().UTC().Format(time.RFC3339)

	var exists bool
	err := db.QueryRow("SELECT 1 FROM qdrant_documents WHERE document_id = ?", doc.DocumentID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if err == sql.ErrNoRows {
		_, err = db.Exec(`
			INSERT INTO qdrant_documents (
				document_id, file_path, source_type, chunk_index, chunk_count,
				chunk_text, span_start, span_end, overlap_tokens, word_count,
				token_count, content_hash, metadata_json, embedding_status,
				embedding_version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?)
		`,
			doc.DocumentID, doc.FilePath, doc.SourceType, doc.ChunkIndex, doc.ChunkCount,
			doc.ChunkText, doc.SpanStart, doc.SpanEnd, doc.OverlapTokens, doc.WordCount,
			doc.TokenCount, doc.ContentHash, doc.MetadataJSON, doc.EmbeddingVersion, now, now,
		)
		return err
	}

	_, err = db.Exec(`
		UPDATE qdrant_documents SET
			file_path = ?, source_type = ?, chunk_index = ?, chunk_count = ?,
			chunk_text = ?, span_start = ?, span_end = ?, overlap_tokens = ?,
			word_count = ?, token_count = ?, content_hash = ?, metadata_json = ?,
			embedding_status = 'pending', embedding_version = ?, qdrant_error = NULL,
			updated_at = ?
		WHERE document_id = ?
	`,
		doc.FilePath, doc.SourceType, doc.ChunkIndex, doc.ChunkCount,
		doc.ChunkText, doc.SpanStart, doc.SpanEnd, doc.OverlapTokens,
		doc.WordCount, doc.TokenCount, doc.ContentHash, doc.MetadataJSON,
		doc.EmbeddingVersion, now, doc.DocumentID,
	)
	return err
}

// GetQdrantDocumentsByIDs returns the chunk rows with the given ids
func GetQdrantDocumentsByIDs(documentIDs []string) ([]QdrantDocument, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(documentIDs)), ", ")
	args := make([]interface{}, len(documentIDs))
	for i, id := range documentIDs {
		args[i] = id
	}

	rows, err := GetDB().Query(
		"SELECT "+qdrantColumns+" FROM qdrant_documents WHERE document_id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []QdrantDocument
	for rows.Next() {
		doc, err := scanQdrantDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// ListQdrantDocumentsByFile returns all chunks for a file
func ListQdrantDocumentsByFile(filePath string) ([]QdrantDocument, error) {
	rows, err := GetDB().Query(
		"SELECT "+qdrantColumns+" FROM qdrant_documents WHERE file_path = ? ORDER BY source_type, chunk_index",
		filePath,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []QdrantDocument
	for rows.Next() {
		doc, err := scanQdrantDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// UpdateQdrantEmbeddingStatus updates the embedding status of a chunk
func UpdateQdrantEmbeddingStatus(documentID, status string, pointID *string, indexedAt *string, errorMsg *string) error {
	db := GetDB()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := db.Exec(`
		UPDATE qdrant_documents SET
			embedding_status = ?,
			qdrant_point_id = ?,
			qdrant_indexed_at = ?,
			qdrant_error = ?,
			updated_at = ?
		WHERE document_id = ?
	`, status, pointID, indexedAt, errorMsg, now, documentID)

	return err
}

// DeleteQdrantDocumentsByFile deletes all chunks for a file
func DeleteQdrantDocumentsByFile(filePath string) (int64, error) {
	result, err := GetDB().Exec("DELETE FROM qdrant_documents WHERE file_path = ?", filePath)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
