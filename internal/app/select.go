package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/blackwell-systems/devsweep/internal/classify"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/scanner"
)

// projectFilter narrows a project list for display or cleanup.
type projectFilter struct {
	statuses   []classify.Status
	ecosystems []ecosystem.ID
	minSize    int64
}

// newProjectFilter parses the --status, --ecosystem and --min-size flags.
func newProjectFilter(statuses, ecosystems []string, minSize string, known []ecosystem.ID) (projectFilter, error) {
	var f projectFilter
	for _, s := range statuses {
		st, err := classify.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.statuses = append(f.statuses, st)
	}
	for _, e := range ecosystems {
		id := ecosystem.ID(strings.ToLower(strings.TrimSpace(e)))
		if !lo.Contains(known, id) {
			return f, fmt.Errorf("unknown ecosystem %q", e)
		}
		f.ecosystems = append(f.ecosystems, id)
	}
	if minSize != "" {
		n, err := humanize.ParseBytes(minSize)
		if err != nil {
			return f, fmt.Errorf("invalid size %q: %w", minSize, err)
		}
		f.minSize = int64(n)
	}
	return f, nil
}

func (f projectFilter) match(p scanner.Project) bool {
	if len(f.statuses) > 0 && !lo.Contains(f.statuses, p.Status) {
		return false
	}
	if len(f.ecosystems) > 0 && !lo.Contains(f.ecosystems, p.Ecosystem) {
		return false
	}
	return p.TotalSize >= f.minSize
}

func (f projectFilter) apply(projects []scanner.Project) []scanner.Project {
	return lo.Filter(projects, func(p scanner.Project, _ int) bool { return f.match(p) })
}

// sortProjects orders projects in place by "size", "name" or "activity".
func sortProjects(projects []scanner.Project, by string) error {
	var less func(a, b scanner.Project) bool
	switch by {
	case "", "size":
		less = func(a, b scanner.Project) bool { return a.TotalSize > b.TotalSize }
	case "name":
		less = func(a, b scanner.Project) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "activity":
		// Least recently used first.
		less = func(a, b scanner.Project) bool { return a.LastModified.Before(b.LastModified) }
	default:
		return fmt.Errorf("unknown sort %q (want size, name or activity)", by)
	}
	sort.SliceStable(projects, func(i, j int) bool { return less(projects[i], projects[j]) })
	return nil
}

// cleanable reports whether p may be cleaned automatically. Protected
// projects never are; active and recent ones only when includeRecent is
// set.
func cleanable(p scanner.Project, includeRecent bool) bool {
	if p.IsProtected || p.TotalSize == 0 {
		return false
	}
	switch p.Status {
	case classify.Stale, classify.Dormant:
		return true
	case classify.Active, classify.Recent:
		return includeRecent
	}
	return false
}
