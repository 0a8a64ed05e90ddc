package db

import (
	"database/sql"
)

func init() {
	RegisterMigration(Migration{
		Version:     2,
		Description: "Search staging tables for Meilisearch and Qdrant",
		Up:          migration002_searchTables,
	})
}

func migration002_searchTables(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// One document per file for keyword search
	_, err = tx.Exec(`
		CREATE TABLE meili_documents (
			document_id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			content TEXT NOT NULL,
			summary TEXT,
			tags TEXT,
			content_hash TEXT NOT NULL,
			word_count INTEGER NOT NULL DEFAULT 0,
			mime_type TEXT,
			metadata_json TEXT,
			meili_status TEXT NOT NULL DEFAULT 'pending',
			meili_task_id TEXT,
			meili_indexed_at TEXT,
			meili_error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX idx_meili_documents_file_path ON meili_documents(file_path);
		CREATE INDEX idx_meili_documents_status ON meili_documents(meili_status);
	`)
	if err != nil {
		return err
	}

	// One row per content chunk for vector search
	_, err = tx.Exec(`
		CREATE TABLE qdrant_documents (
			document_id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			source_type TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			chunk_count INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			span_start INTEGER NOT NULL DEFAULT 0,
			span_end INTEGER NOT NULL DEFAULT 0,
			overlap_tokens INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			token_count INTEGER NOT NULL DEFAULT 0,
			content_hash TEXT NOT NULL,
			metadata_json TEXT,
			embedding_status TEXT NOT NULL DEFAULT 'pending',
			embedding_version INTEGER NOT NULL DEFAULT 0,
			qdrant_point_id TEXT,
			qdrant_indexed_at TEXT,
			qdrant_error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX idx_qdrant_documents_file_path ON qdrant_documents(file_path);
		CREATE INDEX idx_qdrant_documents_status ON qdrant_documents(embedding_status);
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}
