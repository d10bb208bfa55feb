package scanner

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/devsweep/internal/classify"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/editor"
	"github.com/blackwell-systems/devsweep/internal/protect"
)

// analyzeAll enriches stubs in sequential fixed-size batches, analyzing
// the projects of one batch concurrently. It stops between batches when
// ctx is done and returns what was analyzed so far. A batch that has
// started runs to completion: its projects are analyzed under a context
// that ignores cancellation, so no half-measured project is returned.
func (s *Scanner) analyzeAll(ctx context.Context, stubs []Project, settings Settings) []Project {
	batch := settings.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	bctx := context.WithoutCancel(ctx)

	out := make([]Project, len(stubs))
	var total int64
	done := 0
	for start := 0; start < len(stubs); start += batch {
		if ctx.Err() != nil {
			break
		}
		end := min(start+batch, len(stubs))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = s.analyzeSafe(bctx, stubs[i], settings)
				return nil
			})
		}
		_ = g.Wait()

		for i := start; i < end; i++ {
			total += out[i].TotalSize
		}
		done = end
		s.emit(Progress{
			Phase:           Analyzing,
			CurrentPath:     out[end-1].Path,
			ProjectsFound:   len(stubs),
			TotalSize:       total,
			EcosystemCounts: countEcosystems(out[:done]),
		})
	}
	return out[:done]
}

// analyzeSafe returns the stub unchanged when analysis panics or fails.
func (s *Scanner) analyzeSafe(ctx context.Context, stub Project, settings Settings) (p Project) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("path", stub.Path).Warnf("analysis panicked: %v", r)
			p = stub
		}
	}()
	analyzed, err := s.analyze(ctx, stub, settings)
	if err != nil {
		s.log.WithField("path", stub.Path).WithError(err).Warn("analysis failed")
		return stub
	}
	return analyzed
}

// analyze gathers activity, size and editor signals concurrently, then
// classifies and applies scan-time protection.
func (s *Scanner) analyze(ctx context.Context, stub Project, settings Settings) (Project, error) {
	plugin, ok := s.registry.Get(stub.Ecosystem)
	if !ok {
		return stub, fmt.Errorf("no plugin for ecosystem %q", stub.Ecosystem)
	}

	var (
		activity  ecosystem.Activity
		size      int64
		artifacts []ecosystem.Artifact
		usage     editor.Usage
	)
	var g errgroup.Group
	g.Go(guard(func() { activity = plugin.AnalyzeActivity(ctx, stub.Path) }))
	g.Go(guard(func() { size, artifacts = plugin.CalculateSize(ctx, stub.Path) }))
	if settings.Thresholds.ConsiderEditor && s.editors != nil {
		g.Go(guard(func() { usage = s.editors.Usage(stub.Path) }))
	}
	if err := g.Wait(); err != nil {
		return stub, err
	}

	p := stub
	p.LastModified = activity.LastModified
	p.LastCommit = activity.LastCommit
	p.LastEditorAccess = usage.MostRecent
	p.HasUncommittedChanges = activity.HasUncommittedChanges
	p.UncommittedCount = activity.UncommittedCount
	p.TotalSize = size
	p.Artifacts = artifacts
	p.Status = s.classifier.Classify(p.LastModified, p.LastCommit, p.LastEditorAccess)

	reasons := scanReasons(p, activity.VCSDegraded, settings)
	p.IsProtected = len(reasons) > 0
	p.ProtectionReason = strings.Join(reasons, "; ")
	return p, nil
}

// scanReasons is the protection applied during a scan: protected paths,
// uncommitted work and active status. Open-editor detection is left to
// the cleanup path.
func scanReasons(p Project, degraded bool, settings Settings) []string {
	var reasons []string
	if _, ok := protect.MatchProtectedPath(p.Path, settings.ProtectedPaths); ok {
		reasons = append(reasons, protect.ReasonProtectedPath)
	}
	switch {
	case p.HasUncommittedChanges:
		reasons = append(reasons, protect.UncommittedReason(p.UncommittedCount))
	case degraded && settings.ProtectUnreadableRepos:
		reasons = append(reasons, protect.ReasonUnknownRepo)
	}
	if p.Status == classify.Active {
		reasons = append(reasons, protect.ReasonActive)
	}
	return reasons
}

// guard converts a panic in fn into an error.
func guard(fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		fn()
		return nil
	}
}
