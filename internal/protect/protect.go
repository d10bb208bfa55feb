// Package protect decides whether a project must never be selected for
// cleanup automatically.
package protect

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/blackwell-systems/devsweep/internal/editor"
	"github.com/blackwell-systems/devsweep/internal/vcs"
)

// Reason texts.
const (
	ReasonProtectedPath = "In protected paths list"
	ReasonUnknownRepo   = "Repository state unknown"
	ReasonOpenInEditor  = "Currently open in IDE"
	ReasonActive        = "Project is actively used"
)

// UncommittedReason formats the uncommitted-changes reason.
func UncommittedReason(count int) string {
	return fmt.Sprintf("Uncommitted git changes (%d files)", count)
}

// Settings are the inputs read on every Analyze call.
type Settings struct {
	ProtectedPaths []string

	// ProtectUnreadableRepos treats a repository that could not be read as
	// protected.
	ProtectUnreadableRepos bool

	DetectOpenEditors bool
}

// Result is the outcome of Analyze. IsProtected is true exactly when
// Reasons is non-empty.
type Result struct {
	IsProtected bool     `json:"is_protected"`
	Reasons     []string `json:"reasons,omitempty"`
}

// Reason joins the reasons for display.
func (r Result) Reason() string {
	return strings.Join(r.Reasons, "; ")
}

// Analyzer collects every applicable protection reason for a project.
type Analyzer struct {
	settings func() Settings
	vcs      vcs.Provider
	procs    editor.ProcessInspector
}

// NewAnalyzer creates an Analyzer. A nil vcs or procs skips that check.
func NewAnalyzer(settings func() Settings, v vcs.Provider, procs editor.ProcessInspector) *Analyzer {
	return &Analyzer{settings: settings, vcs: v, procs: procs}
}

// Analyze checks, in order, the protected path list, uncommitted changes,
// and open editors. Every applicable reason is collected.
func (a *Analyzer) Analyze(ctx context.Context, path string) Result {
	s := a.settings()
	var reasons []string

	if _, ok := MatchProtectedPath(path, s.ProtectedPaths); ok {
		reasons = append(reasons, ReasonProtectedPath)
	}

	if a.vcs != nil {
		if info := a.vcs.ProjectInfo(ctx, path); info != nil {
			switch {
			case info.HasUncommittedChanges:
				reasons = append(reasons, UncommittedReason(info.UncommittedCount))
			case info.Degraded && s.ProtectUnreadableRepos:
				reasons = append(reasons, ReasonUnknownRepo)
			}
		}
	}

	if s.DetectOpenEditors && a.procs != nil {
		if _, open := a.procs.OpenIn(ctx, path); open {
			reasons = append(reasons, ReasonOpenInEditor)
		}
	}

	return Result{IsProtected: len(reasons) > 0, Reasons: reasons}
}

// MatchProtectedPath returns the first prefix that path equals or lies
// beneath. Prefixes are tilde-expanded; empty prefixes never match.
func MatchProtectedPath(path string, prefixes []string) (string, bool) {
	path = filepath.Clean(path)
	for _, p := range prefixes {
		if strings.TrimSpace(p) == "" {
			continue
		}
		expanded, err := homedir.Expand(p)
		if err != nil {
			continue
		}
		if editor.Within(filepath.Clean(expanded), path) {
			return p, true
		}
	}
	return "", false
}
