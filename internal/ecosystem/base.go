package ecosystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/devsweep/internal/vcs"
)

// Deps are the collaborators shared by every plugin.
type Deps struct {
	// VCS answers repository queries. Nil disables commit signals.
	VCS vcs.Provider

	// Trash backs CleanOptions.MoveToTrash. Nil makes trashing fail.
	Trash Trasher

	// Home anchors global cache paths.
	Home string

	Log logrus.FieldLogger
}

// errNoTrash is recorded when trashing is requested without a Trasher.
var errNoTrash = errors.New("no trash facility configured")

// Base is the shared Plugin implementation. Concrete ecosystems embed it
// and override Detect where marker files are not enough.
type Base struct {
	desc    Descriptor
	globals []GlobalPath
	deps    Deps
}

// NewBase creates a Base. Global paths are relative to deps.Home.
func NewBase(desc Descriptor, globals []GlobalPath, deps Deps) *Base {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	resolved := make([]GlobalPath, 0, len(globals))
	if deps.Home != "" {
		for _, g := range globals {
			resolved = append(resolved, GlobalPath{
				Path:        filepath.Join(deps.Home, filepath.FromSlash(g.Path)),
				Description: g.Description,
			})
		}
	}
	return &Base{desc: desc, globals: resolved, deps: deps}
}

// Descriptor implements Plugin.
func (b *Base) Descriptor() Descriptor { return b.desc }

// GlobalPaths implements Plugin.
func (b *Base) GlobalPaths() []GlobalPath { return b.globals }

// Detect implements Plugin: true when any marker exists directly inside
// path. Markers with glob meta characters match against the listing.
func (b *Base) Detect(path string) bool {
	var globs []string
	for _, m := range b.desc.Markers {
		if isGlob(m) {
			globs = append(globs, m)
			continue
		}
		if _, err := os.Stat(filepath.Join(path, m)); err == nil {
			return true
		}
	}
	if len(globs) == 0 {
		return false
	}
	return hasEntry(path, globs, func(fs.DirEntry) bool { return true })
}

// AnalyzeActivity implements Plugin.
func (b *Base) AnalyzeActivity(ctx context.Context, path string) Activity {
	a := Activity{LastModified: time.Unix(0, 0).UTC()}
	if info, err := os.Stat(path); err == nil {
		a.LastModified = info.ModTime()
	}
	if b.deps.VCS == nil {
		return a
	}

	info := b.deps.VCS.ProjectInfo(ctx, path)
	if info == nil {
		return a
	}
	a.LastCommit = info.LastCommit
	a.HasUncommittedChanges = info.HasUncommittedChanges
	a.UncommittedCount = info.UncommittedCount
	a.VCSDegraded = info.Degraded
	if info.LastCommit != nil && info.LastCommit.After(a.LastModified) {
		a.LastModified = *info.LastCommit
	}
	return a
}

// CalculateSize implements Plugin. A resolved path is counted once, and a
// path nested inside an already counted artifact is skipped.
func (b *Base) CalculateSize(ctx context.Context, path string) (int64, []Artifact) {
	var (
		total     int64
		artifacts []Artifact
	)
	for _, p := range b.desc.Patterns {
		for _, abs := range resolvePattern(path, p.Pattern) {
			if ctx.Err() != nil {
				return total, artifacts
			}
			if covered(artifacts, abs) {
				continue
			}
			size, err := DirSize(ctx, abs)
			if err != nil || size <= 0 {
				continue
			}
			artifacts = append(artifacts, Artifact{
				Pattern:     p.Pattern,
				Description: p.Description,
				Size:        size,
				Path:        abs,
				AlwaysSafe:  p.AlwaysSafe,
			})
			total += size
		}
	}
	return total, artifacts
}

// Clean implements Plugin. A failure on one artifact is recorded and the
// rest are still cleaned. Artifacts that are not AlwaysSafe are kept
// unless opts.IncludeUnsafe is set.
func (b *Base) Clean(ctx context.Context, path string, opts CleanOptions) CleanResult {
	var res CleanResult
	_, artifacts := b.CalculateSize(ctx, path)

	log := b.deps.Log.WithField("project", path)
	for _, a := range artifacts {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, CleanError{Path: a.Path, Err: ctx.Err().Error()})
			continue
		}
		if !a.AlwaysSafe && !opts.IncludeUnsafe {
			log.WithField("artifact", a.Path).Debug("keeping artifact that may hold user content")
			res.Kept = append(res.Kept, a.Path)
			continue
		}
		if !opts.DryRun {
			if err := b.remove(a.Path, opts.MoveToTrash); err != nil {
				log.WithField("artifact", a.Path).WithError(err).Warn("cleaning artifact failed")
				res.Errors = append(res.Errors, CleanError{Path: a.Path, Err: err.Error()})
				continue
			}
			log.WithField("artifact", a.Path).WithField("bytes", a.Size).Debug("artifact cleaned")
		}
		res.BytesFreed += a.Size
		res.ArtifactsFreed++
		res.Cleaned = append(res.Cleaned, a.Path)
	}
	return res
}

func (b *Base) remove(path string, toTrash bool) error {
	if !toTrash {
		return os.RemoveAll(path)
	}
	if b.deps.Trash == nil {
		return errNoTrash
	}
	return b.deps.Trash.Trash(path)
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// resolvePattern returns the absolute candidate paths for one pattern.
func resolvePattern(root, pattern string) []string {
	if !isGlob(pattern) {
		return []string{filepath.Join(root, filepath.FromSlash(pattern))}
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(root, filepath.FromSlash(m)))
	}
	return out
}

// covered reports whether path equals or lies inside a counted artifact.
func covered(artifacts []Artifact, path string) bool {
	for _, a := range artifacts {
		if path == a.Path || strings.HasPrefix(path, a.Path+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// hasEntry reports whether any direct child of dir matches one of the glob
// patterns and satisfies keep.
func hasEntry(dir string, globs []string, keep func(fs.DirEntry) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		for _, g := range globs {
			if ok, _ := doublestar.Match(g, e.Name()); ok && keep(e) {
				return true
			}
		}
	}
	return false
}
