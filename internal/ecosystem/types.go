// Package ecosystem describes the development toolchains devsweep knows
// about: how to recognize a project root, which subtrees inside it are
// disposable, and how to measure and remove them.
package ecosystem

import (
	"context"
	"time"
)

// ID identifies an ecosystem.
type ID string

const (
	ReactNative ID = "react-native"
	NodeJS      ID = "nodejs"
	Rust        ID = "rust"
	Xcode       ID = "xcode"
	Python      ID = "python"
	Docker      ID = "docker"
	Go          ID = "go"
	Android     ID = "android"
	Ruby        ID = "ruby"
	PHP         ID = "php"
	Java        ID = "java"
	Elixir      ID = "elixir"
	DotNet      ID = "dotnet"
)

// Pattern is one cleanable path relative to a project root. Patterns
// containing glob meta characters expand to every match.
type Pattern struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`

	// AlwaysSafe is false when the path may hold user-authored content
	// (a committed vendor directory, a config folder named env).
	AlwaysSafe bool `json:"always_safe"`
}

// Descriptor is the static description of an ecosystem.
type Descriptor struct {
	ID       ID        `json:"id"`
	Name     string    `json:"name"`
	Markers  []string  `json:"markers"`
	Patterns []Pattern `json:"patterns"`
}

// Artifact is one measured, cleanable subtree inside a project.
type Artifact struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
	AlwaysSafe  bool   `json:"always_safe"`
}

// Activity is the raw signal bundle for a project, consumed by the
// classifier and then discarded.
type Activity struct {
	// LastModified is the later of the directory mtime and the last
	// commit. Zero Unix time when the directory could not be read.
	LastModified time.Time

	LastCommit            *time.Time
	HasUncommittedChanges bool
	UncommittedCount      int

	// VCSDegraded is set when a repository exists but could not be read.
	VCSDegraded bool
}

// CleanOptions controls Plugin.Clean.
type CleanOptions struct {
	DryRun      bool
	MoveToTrash bool

	// IncludeUnsafe also removes artifacts whose pattern is not AlwaysSafe.
	IncludeUnsafe bool
}

// CleanError records one artifact that could not be removed.
type CleanError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// CleanResult summarizes a Clean call.
type CleanResult struct {
	BytesFreed     int64        `json:"bytes_freed"`
	ArtifactsFreed int          `json:"artifacts_freed"`
	Cleaned        []string     `json:"cleaned,omitempty"`
	Errors         []CleanError `json:"errors,omitempty"`

	// Kept lists artifacts left in place because they may hold
	// user-authored content and IncludeUnsafe was not set.
	Kept []string `json:"kept,omitempty"`
}

// GlobalPath is a cache shared by every project of an ecosystem, outside
// any single project root.
type GlobalPath struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Plugin is the capability set of one ecosystem.
type Plugin interface {
	Descriptor() Descriptor

	// Detect reports whether path is itself a project root.
	Detect(path string) bool

	// AnalyzeActivity never fails; unreadable signals fall back to defaults.
	AnalyzeActivity(ctx context.Context, path string) Activity

	// CalculateSize measures every present artifact. The total always
	// equals the sum of the returned artifact sizes.
	CalculateSize(ctx context.Context, path string) (int64, []Artifact)

	// Clean removes artifacts, or only totals them when opts.DryRun is set.
	Clean(ctx context.Context, path string, opts CleanOptions) CleanResult

	GlobalPaths() []GlobalPath
}

// Trasher moves a path into the user's trash.
type Trasher interface {
	Trash(path string) error
}
