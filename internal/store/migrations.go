package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	// Create the schema_version table if it does not exist.
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates all initial tables and indexes.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at          TEXT NOT NULL,
			duration_ms         INTEGER NOT NULL,
			roots               TEXT NOT NULL,
			total_size          INTEGER NOT NULL,
			total_projects      INTEGER NOT NULL,
			directories_scanned INTEGER NOT NULL,
			truncated           BOOLEAN NOT NULL
		)`,

		// Projects of the latest scan only; replaced wholesale by SaveScan.
		`CREATE TABLE IF NOT EXISTS scan_cache (
			id                      TEXT PRIMARY KEY,
			scan_id                 INTEGER NOT NULL REFERENCES scans(id),
			position                INTEGER NOT NULL,
			path                    TEXT NOT NULL,
			name                    TEXT NOT NULL,
			ecosystem               TEXT NOT NULL,
			status                  TEXT NOT NULL,
			last_modified           TEXT NOT NULL,
			last_commit             TEXT,
			last_editor_access      TEXT,
			has_uncommitted_changes BOOLEAN NOT NULL,
			uncommitted_count       INTEGER NOT NULL,
			is_protected            BOOLEAN NOT NULL,
			protection_reason       TEXT,
			total_size              INTEGER NOT NULL,
			artifacts_json          TEXT NOT NULL,
			scanned_at              TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS deletion_log (
			id             TEXT PRIMARY KEY,
			run_id         TEXT NOT NULL,
			deleted_at     TEXT NOT NULL,
			project_id     TEXT NOT NULL,
			project_path   TEXT NOT NULL,
			project_name   TEXT NOT NULL,
			ecosystem      TEXT NOT NULL,
			artifacts_json TEXT NOT NULL,
			total_size     INTEGER NOT NULL,
			trashed        BOOLEAN NOT NULL
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_scan_cache_ecosystem ON scan_cache(ecosystem)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_cache_status ON scan_cache(status)`,
		`CREATE INDEX IF NOT EXISTS idx_deletion_log_deleted_at ON deletion_log(deleted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_deletion_log_run ON deletion_log(run_id)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	// Set schema version.
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
