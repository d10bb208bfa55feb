package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/devsweep/internal/ecosystem"
)

// skipDirs are directory names never descended into: dependency and build
// output, VCS metadata and large user or system folders.
var skipDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"build":        true,
	"dist":         true,
	".git":         true,
	"Library":      true,
	"Applications": true,
	"System":       true,
	"Volumes":      true,
	".Trash":       true,
	".npm":         true,
	".cargo":       true,
	".rustup":      true,
	".local":       true,
	".cache":       true,
	"Pictures":     true,
	"Music":        true,
	"Movies":       true,
	"Downloads":    true,
}

// ProjectID returns the stable identifier for an absolute project path.
func ProjectID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

type discovery struct {
	stubs     []Project
	visited   int
	limit     int
	truncated bool
}

// resolveRoots expands and absolutizes paths, dropping any that are not
// readable directories.
func resolveRoots(paths []string, log logrus.FieldLogger) []string {
	var roots []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		expanded, err := homedir.Expand(p)
		if err != nil {
			log.WithField("path", p).WithError(err).Debug("skipping scan root")
			continue
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			log.WithField("path", abs).Debug("scan root is not a directory")
			continue
		}
		roots = append(roots, abs)
	}
	return roots
}

// discover walks roots breadth-first. A directory claimed by an ecosystem
// becomes a project stub and is not descended into.
func (s *Scanner) discover(ctx context.Context, roots []string, opts Options, settings Settings) discovery {
	d := discovery{limit: settings.MaxDirectories}
	if d.limit <= 0 {
		d.limit = DefaultMaxDirectories
	}
	excludes := expandExcludes(opts.ExcludePaths)
	counts := make(map[ecosystem.ID]int)
	seen := make(map[string]bool)

	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return d
		}
		dir := queue[0]
		queue = queue[1:]

		key := dir
		if opts.FollowSymlinks {
			if real, err := filepath.EvalSymlinks(dir); err == nil {
				key = real
			}
		}
		if seen[key] || excluded(dir, excludes) {
			continue
		}
		if d.visited >= d.limit {
			d.truncated = true
			return d
		}
		seen[key] = true
		d.visited++

		if id, ok := s.registry.Resolve(dir, opts.Ecosystems); ok {
			d.stubs = append(d.stubs, Project{
				ID:        ProjectID(dir),
				Path:      dir,
				Name:      filepath.Base(dir),
				Ecosystem: id,
			})
			counts[id]++
			s.emit(Progress{
				Phase:           Discovering,
				CurrentPath:     dir,
				ProjectsFound:   len(d.stubs),
				EcosystemCounts: counts,
			})
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.log.WithField("path", dir).WithError(err).Debug("reading directory failed")
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				continue
			}
			child := filepath.Join(dir, name)
			switch {
			case e.IsDir():
				queue = append(queue, child)
			case e.Type()&os.ModeSymlink != 0 && opts.FollowSymlinks:
				if info, err := os.Stat(child); err == nil && info.IsDir() {
					queue = append(queue, child)
				}
			}
		}
	}
	return d
}

func expandExcludes(paths []string) []string {
	var out []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if expanded, err := homedir.Expand(p); err == nil {
			p = expanded
		}
		out = append(out, p)
	}
	return out
}

// excluded reports whether dir contains any exclude entry. A path prefix
// is also a substring, so prefix rules need no separate check.
func excluded(dir string, excludes []string) bool {
	for _, ex := range excludes {
		if strings.Contains(dir, ex) {
			return true
		}
	}
	return false
}
