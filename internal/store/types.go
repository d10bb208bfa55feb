// Package store provides SQLite persistence for devsweep: the cache of the
// latest scan, scan history and the log of cleaned projects.
package store

import (
	"time"

	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/scanner"
)

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ID                 int64         `json:"id"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
	Roots              []string      `json:"roots"`
	TotalSize          int64         `json:"total_size"`
	TotalProjects      int           `json:"total_projects"`
	DirectoriesScanned int           `json:"directories_scanned"`
	Truncated          bool          `json:"truncated,omitempty"`
}

// CachedScan is the latest scan rebuilt from the cache.
type CachedScan struct {
	Record ScanRecord      `json:"record"`
	Result *scanner.Result `json:"result"`
}

// Deletion records one cleaned project.
type Deletion struct {
	ID string `json:"id"`

	// RunID groups the deletions of one clean invocation.
	RunID string `json:"run_id"`

	DeletedAt   time.Time            `json:"deleted_at"`
	ProjectID   string               `json:"project_id"`
	ProjectPath string               `json:"project_path"`
	ProjectName string               `json:"project_name"`
	Ecosystem   ecosystem.ID         `json:"ecosystem"`
	Artifacts   []ecosystem.Artifact `json:"artifacts"`
	TotalSize   int64                `json:"total_size"`
	Trashed     bool                 `json:"trashed"`
}

// EcosystemStats aggregates deletions of one ecosystem.
type EcosystemStats struct {
	Ecosystem       ecosystem.ID `json:"ecosystem"`
	BytesFreed      int64        `json:"bytes_freed"`
	ProjectsCleaned int          `json:"projects_cleaned"`
}

// Statistics aggregates the whole deletion log.
type Statistics struct {
	TotalBytesFreed      int64            `json:"total_bytes_freed"`
	TotalProjectsCleaned int              `json:"total_projects_cleaned"`
	CleanupCount         int              `json:"cleanup_count"`
	LargestCleanup       int64            `json:"largest_cleanup"`
	LastCleanup          *time.Time       `json:"last_cleanup,omitempty"`
	Ecosystems           []EcosystemStats `json:"ecosystems,omitempty"`
}
