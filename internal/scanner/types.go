// Package scanner discovers project roots under a set of directories and
// analyzes each one for size, activity and protection.
package scanner

import (
	"time"

	"github.com/blackwell-systems/devsweep/internal/classify"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
)

// Options select what a single scan covers.
type Options struct {
	// Paths are the roots to walk. A leading ~ is expanded.
	Paths []string `json:"paths"`

	// ExcludePaths skip any directory whose path contains one of them.
	ExcludePaths []string `json:"exclude_paths,omitempty"`

	// Ecosystems is the enabled set. Empty means nothing is scanned.
	Ecosystems []ecosystem.ID `json:"ecosystems"`

	FollowSymlinks bool `json:"follow_symlinks"`
}

// Phase is the scan state reported in progress events.
type Phase string

const (
	Discovering Phase = "discovering"
	Analyzing   Phase = "analyzing"
	Complete    Phase = "complete"
	Cancelled   Phase = "cancelled"
)

// Progress is one progress event.
type Progress struct {
	Phase           Phase                `json:"phase"`
	CurrentPath     string               `json:"current_path,omitempty"`
	ProjectsFound   int                  `json:"projects_found"`
	TotalSize       int64                `json:"total_size"`
	EcosystemCounts map[ecosystem.ID]int `json:"ecosystem_counts,omitempty"`
}

// Sink receives progress events. Events are delivered synchronously from
// the scanning goroutine.
type Sink interface {
	Progress(Progress)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Progress)

// Progress implements Sink.
func (f SinkFunc) Progress(p Progress) { f(p) }

// Project is a discovered project root. It is created as a stub during
// discovery and enriched once during analysis.
type Project struct {
	// ID is derived from the absolute path and is stable across scans.
	ID string `json:"id"`

	Path      string       `json:"path"`
	Name      string       `json:"name"`
	Ecosystem ecosystem.ID `json:"ecosystem"`

	// Status is empty on a stub whose analysis failed.
	Status classify.Status `json:"status,omitempty"`

	LastModified     time.Time  `json:"last_modified"`
	LastCommit       *time.Time `json:"last_commit,omitempty"`
	LastEditorAccess *time.Time `json:"last_editor_access,omitempty"`

	HasUncommittedChanges bool `json:"has_uncommitted_changes"`
	UncommittedCount      int  `json:"uncommitted_count"`

	IsProtected      bool   `json:"is_protected"`
	ProtectionReason string `json:"protection_reason,omitempty"`

	TotalSize int64                `json:"total_size"`
	Artifacts []ecosystem.Artifact `json:"artifacts,omitempty"`
}

// EcosystemSummary aggregates the projects of one ecosystem.
type EcosystemSummary struct {
	Ecosystem    ecosystem.ID `json:"ecosystem"`
	ProjectCount int          `json:"project_count"`
	TotalSize    int64        `json:"total_size"`

	// CleanableSize excludes protected projects.
	CleanableSize int64 `json:"cleanable_size"`
}

// Result is the outcome of one scan.
type Result struct {
	Projects         []Project          `json:"projects"`
	TotalSize        int64              `json:"total_size"`
	TotalProjects    int                `json:"total_projects"`
	EcosystemSummary []EcosystemSummary `json:"ecosystem_summary"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// DirectoriesScanned counts directories visited during discovery.
	DirectoriesScanned int `json:"directories_scanned"`

	// Truncated is set when discovery stopped at the directory limit.
	Truncated bool `json:"truncated,omitempty"`

	// Cancelled is set when the scan was stopped early. Projects then
	// holds only the projects analyzed before the stop.
	Cancelled bool `json:"cancelled,omitempty"`
}
