package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/blackwell-systems/devsweep/internal/ecosystem"
)

// InsertDeletion appends d to the deletion log. An empty ID is filled in.
func (db *DB) InsertDeletion(d *Deletion) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	artifacts, err := json.Marshal(d.Artifacts)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		`INSERT INTO deletion_log
		(id, run_id, deleted_at, project_id, project_path, project_name, ecosystem,
		 artifacts_json, total_size, trashed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RunID, formatTime(d.DeletedAt), d.ProjectID, d.ProjectPath, d.ProjectName,
		string(d.Ecosystem), string(artifacts), d.TotalSize, d.Trashed,
	)
	if err != nil {
		return fmt.Errorf("inserting deletion: %w", err)
	}
	return nil
}

// ListDeletions returns the most recent deletions, newest first.
func (db *DB) ListDeletions(limit int) ([]Deletion, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, deleted_at, project_id, project_path, project_name, ecosystem,
		        artifacts_json, total_size, trashed
		 FROM deletion_log ORDER BY deleted_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deletion
	for rows.Next() {
		var (
			d                    Deletion
			deletedAt, eco, arts string
		)
		if err := rows.Scan(&d.ID, &d.RunID, &deletedAt, &d.ProjectID, &d.ProjectPath,
			&d.ProjectName, &eco, &arts, &d.TotalSize, &d.Trashed); err != nil {
			return nil, err
		}
		d.DeletedAt = parseTime(deletedAt)
		d.Ecosystem = ecosystem.ID(eco)
		_ = json.Unmarshal([]byte(arts), &d.Artifacts)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Statistics aggregates the deletion log.
func (db *DB) Statistics() (*Statistics, error) {
	var (
		s    Statistics
		last sql.NullString
	)
	err := db.conn.QueryRow(
		`SELECT COALESCE(SUM(total_size), 0), COUNT(DISTINCT project_id),
		        COUNT(DISTINCT run_id), MAX(deleted_at)
		 FROM deletion_log`).Scan(&s.TotalBytesFreed, &s.TotalProjectsCleaned, &s.CleanupCount, &last)
	if err != nil {
		return nil, err
	}
	s.LastCleanup = timePtr(last)

	err = db.conn.QueryRow(
		`SELECT COALESCE(MAX(run_total), 0) FROM
		 (SELECT SUM(total_size) AS run_total FROM deletion_log GROUP BY run_id)`).Scan(&s.LargestCleanup)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(
		`SELECT ecosystem, SUM(total_size), COUNT(DISTINCT project_id)
		 FROM deletion_log GROUP BY ecosystem ORDER BY SUM(total_size) DESC, ecosystem`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			es  EcosystemStats
			eco string
		)
		if err := rows.Scan(&eco, &es.BytesFreed, &es.ProjectsCleaned); err != nil {
			return nil, err
		}
		es.Ecosystem = ecosystem.ID(eco)
		s.Ecosystems = append(s.Ecosystems, es)
	}
	return &s, rows.Err()
}
