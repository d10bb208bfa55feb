package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blackwell-systems/devsweep/internal/classify"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/scanner"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// SaveScan records res in the scan history and replaces the cached
// projects with res.Projects. It returns the new scan ID.
func (db *DB) SaveScan(res *scanner.Result, roots []string) (int64, error) {
	rootsJSON, err := json.Marshal(roots)
	if err != nil {
		return 0, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO scans
		(started_at, duration_ms, roots, total_size, total_projects, directories_scanned, truncated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(res.StartedAt), res.Duration.Milliseconds(), string(rootsJSON),
		res.TotalSize, res.TotalProjects, res.DirectoriesScanned, res.Truncated,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting scan: %w", err)
	}
	scanID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec("DELETE FROM scan_cache"); err != nil {
		return 0, fmt.Errorf("clearing scan cache: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO scan_cache
		(id, scan_id, position, path, name, ecosystem, status, last_modified, last_commit,
		 last_editor_access, has_uncommitted_changes, uncommitted_count, is_protected,
		 protection_reason, total_size, artifacts_json, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	scannedAt := formatTime(res.StartedAt.Add(res.Duration))
	for i, p := range res.Projects {
		artifacts, err := json.Marshal(p.Artifacts)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.Exec(
			p.ID, scanID, i, p.Path, p.Name, string(p.Ecosystem), string(p.Status),
			formatTime(p.LastModified), nullTime(p.LastCommit), nullTime(p.LastEditorAccess),
			p.HasUncommittedChanges, p.UncommittedCount, p.IsProtected, p.ProtectionReason,
			p.TotalSize, string(artifacts), scannedAt,
		); err != nil {
			return 0, fmt.Errorf("caching project %s: %w", p.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return scanID, nil
}

const scanColumns = `id, started_at, duration_ms, roots, total_size, total_projects, directories_scanned, truncated`

func scanRecord(row interface{ Scan(...any) error }) (*ScanRecord, error) {
	var (
		r          ScanRecord
		startedAt  string
		durationMs int64
		roots      string
	)
	err := row.Scan(&r.ID, &startedAt, &durationMs, &roots, &r.TotalSize, &r.TotalProjects,
		&r.DirectoriesScanned, &r.Truncated)
	if err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(startedAt)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	_ = json.Unmarshal([]byte(roots), &r.Roots)
	return &r, nil
}

// ListScans returns the most recent scans, newest first.
func (db *DB) ListScans(limit int) ([]ScanRecord, error) {
	rows, err := db.conn.Query("SELECT "+scanColumns+" FROM scans ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// LatestScan rebuilds the latest cached scan, or returns nil if none
// exist. Totals and the ecosystem summary reflect the cache as it is now,
// including any updates made after cleaning.
func (db *DB) LatestScan() (*CachedScan, error) {
	row := db.conn.QueryRow("SELECT " + scanColumns + " FROM scans ORDER BY id DESC LIMIT 1")
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	projects, err := db.cachedProjects(rec.ID)
	if err != nil {
		return nil, err
	}
	summary, err := db.cachedSummary(rec.ID)
	if err != nil {
		return nil, err
	}

	res := &scanner.Result{
		Projects:           projects,
		TotalProjects:      len(projects),
		EcosystemSummary:   summary,
		StartedAt:          rec.StartedAt,
		Duration:           rec.Duration,
		DirectoriesScanned: rec.DirectoriesScanned,
		Truncated:          rec.Truncated,
	}
	for _, p := range projects {
		res.TotalSize += p.TotalSize
	}
	return &CachedScan{Record: *rec, Result: res}, nil
}

func (db *DB) cachedProjects(scanID int64) ([]scanner.Project, error) {
	rows, err := db.conn.Query(
		`SELECT id, path, name, ecosystem, status, last_modified, last_commit, last_editor_access,
		        has_uncommitted_changes, uncommitted_count, is_protected, protection_reason,
		        total_size, artifacts_json
		 FROM scan_cache WHERE scan_id = ? ORDER BY position`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []scanner.Project{}
	for rows.Next() {
		var (
			p                      scanner.Project
			eco, status, modified  string
			commit, editor, reason sql.NullString
			artifacts              string
		)
		if err := rows.Scan(&p.ID, &p.Path, &p.Name, &eco, &status, &modified, &commit, &editor,
			&p.HasUncommittedChanges, &p.UncommittedCount, &p.IsProtected, &reason,
			&p.TotalSize, &artifacts); err != nil {
			return nil, err
		}
		p.Ecosystem = ecosystem.ID(eco)
		p.Status = classify.Status(status)
		p.LastModified = parseTime(modified)
		p.LastCommit = timePtr(commit)
		p.LastEditorAccess = timePtr(editor)
		p.ProtectionReason = reason.String
		if err := json.Unmarshal([]byte(artifacts), &p.Artifacts); err != nil {
			return nil, fmt.Errorf("decoding artifacts of %s: %w", p.Path, err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (db *DB) cachedSummary(scanID int64) ([]scanner.EcosystemSummary, error) {
	rows, err := db.conn.Query(
		`SELECT ecosystem, COUNT(*), SUM(total_size),
		        SUM(CASE WHEN is_protected THEN 0 ELSE total_size END)
		 FROM scan_cache WHERE scan_id = ?
		 GROUP BY ecosystem
		 ORDER BY SUM(total_size) DESC, ecosystem`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := []scanner.EcosystemSummary{}
	for rows.Next() {
		var (
			s   scanner.EcosystemSummary
			eco string
		)
		if err := rows.Scan(&eco, &s.ProjectCount, &s.TotalSize, &s.CleanableSize); err != nil {
			return nil, err
		}
		s.Ecosystem = ecosystem.ID(eco)
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

// UpdateCachedProject rewrites the cached size, artifacts and protection
// of one project, typically after it was cleaned.
func (db *DB) UpdateCachedProject(p scanner.Project) error {
	artifacts, err := json.Marshal(p.Artifacts)
	if err != nil {
		return err
	}
	result, err := db.conn.Exec(
		`UPDATE scan_cache SET total_size = ?, artifacts_json = ?, is_protected = ?, protection_reason = ?
		 WHERE id = ?`,
		p.TotalSize, string(artifacts), p.IsProtected, p.ProtectionReason, p.ID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %s is not cached", p.ID)
	}
	return nil
}

// ClearCache drops the cached projects and the scan history.
func (db *DB) ClearCache() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM scan_cache"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM scans"); err != nil {
		return err
	}
	return tx.Commit()
}
