// Package editor reports editor activity for a project: recent use of
// editor metadata directories and whether an editor process currently has
// the project open.
package editor

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSampleSize is how many children of a metadata directory are
// inspected for their modification time.
const DefaultSampleSize = 10

// metadataDirs maps editor names to their per-project metadata directory.
var metadataDirs = []struct {
	editor string
	dir    string
}{
	{"VS Code", ".vscode"},
	{"JetBrains", ".idea"},
	{"Visual Studio", ".vs"},
	{"Fleet", ".fleet"},
}

// xcodeBundles matches Xcode project and workspace bundles.
const xcodeBundles = "*.{xcodeproj,xcworkspace}"

// Usage is the editor signal bundle for one project.
type Usage struct {
	// Editors maps editor name to its last observed access time.
	Editors map[string]time.Time

	// MostRecent is the latest time across Editors, nil when no editor
	// signal was found.
	MostRecent *time.Time
}

// Detector inspects editor metadata on disk.
type Detector struct {
	sampleSize int
}

// NewDetector creates a Detector. A non-positive sampleSize uses
// DefaultSampleSize.
func NewDetector(sampleSize int) *Detector {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Detector{sampleSize: sampleSize}
}

// Usage collects editor signals for projectPath. A failure reading one
// editor's metadata never hides another editor's signal.
func (d *Detector) Usage(projectPath string) Usage {
	u := Usage{Editors: make(map[string]time.Time)}

	for _, m := range metadataDirs {
		if t, ok := d.dirAccess(filepath.Join(projectPath, m.dir)); ok {
			u.Editors[m.editor] = t
		}
	}
	if t, ok := xcodeAccess(projectPath); ok {
		u.Editors["Xcode"] = t
	}

	for _, t := range u.Editors {
		if u.MostRecent == nil || t.After(*u.MostRecent) {
			latest := t
			u.MostRecent = &latest
		}
	}
	return u
}

// dirAccess returns the newest mtime among dir itself and a bounded sample
// of its immediate children.
func (d *Detector) dirAccess(dir string) (time.Time, bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return time.Time{}, false
	}
	latest := info.ModTime()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return latest, true
	}
	if len(entries) > d.sampleSize {
		entries = entries[:d.sampleSize]
	}
	for _, e := range entries {
		ei, err := e.Info()
		if err != nil {
			continue
		}
		if ei.ModTime().After(latest) {
			latest = ei.ModTime()
		}
	}
	return latest, true
}

func xcodeAccess(projectPath string) (time.Time, bool) {
	matches, err := doublestar.Glob(os.DirFS(projectPath), xcodeBundles)
	if err != nil || len(matches) == 0 {
		return time.Time{}, false
	}
	var latest time.Time
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(projectPath, m))
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, !latest.IsZero()
}
