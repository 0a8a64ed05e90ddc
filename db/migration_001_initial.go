package db

import (
	"database/sql"
)

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Initial schema",
		Up:          migration001_initial,
	})
}

func migration001_initial(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Files table. Timestamps are epoch milliseconds.
	_, err = tx.Exec(`
		CREATE TABLE files (
			path TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			is_folder INTEGER NOT NULL DEFAULT 0,
			size INTEGER,
			mime_type TEXT,
			hash TEXT,
			modified_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			last_scanned_at INTEGER,
			text_preview TEXT,
			screenshot_sqlar TEXT
		);

		CREATE INDEX idx_files_is_folder ON files(is_folder);
		CREATE INDEX idx_files_modified_at ON files(modified_at);
		CREATE INDEX idx_files_last_scanned_at ON files(last_scanned_at);
	`)
	if err != nil {
		return err
	}

	// Digests table (one row per file_path + digester output name)
	_, err = tx.Exec(`
		CREATE TABLE digests (
			id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			digester TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'todo',
			content TEXT,
			sqlar_name TEXT,
			error TEXT,
			attempts INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(file_path, digester)
		);

		CREATE INDEX idx_digests_file_path ON digests(file_path);
		CREATE INDEX idx_digests_digester ON digests(digester);
		CREATE INDEX idx_digests_status ON digests(status);
	`)
	if err != nil {
		return err
	}

	// Advisory per-file locks for digest processing
	_, err = tx.Exec(`
		CREATE TABLE file_locks (
			file_path TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			acquired_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	// SQLite Archive table for binary digest artifacts (screenshots, thumbnails)
	_, err = tx.Exec(`
		CREATE TABLE sqlar (
			name TEXT PRIMARY KEY,
			mode INT,
			mtime INT,
			sz INT,
			data BLOB
		);
	`)
	if err != nil {
		return err
	}

	// Background task queue for indexer work
	_, err = tx.Exec(`
		CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			task_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT,
			attempts INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX idx_tasks_status ON tasks(status);
		CREATE INDEX idx_tasks_task_type ON tasks(task_type);
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}
