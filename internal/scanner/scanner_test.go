package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/devsweep/internal/classify"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/editor"
	"github.com/blackwell-systems/devsweep/internal/logging"
	"github.com/blackwell-systems/devsweep/internal/protect"
	"github.com/blackwell-systems/devsweep/internal/vcs"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o755))
}

func setOld(t *testing.T, path string) {
	t.Helper()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, old, old))
}

func defaultSettings() Settings {
	return Settings{Thresholds: classify.DefaultThresholds()}
}

func fixed(s Settings) func() Settings {
	return func() Settings { return s }
}

func newScanner(deps ecosystem.Deps, settings func() Settings, opts ...Option) *Scanner {
	deps.Log = logging.Discard()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(ecosystem.NewDefaultRegistry(deps), settings, opts...)
}

func allEcosystems() []ecosystem.ID {
	return ecosystem.NewDefaultRegistry(ecosystem.Deps{}).IDs()
}

func scanOpts(root string) Options {
	return Options{Paths: []string{root}, Ecosystems: allEcosystems()}
}

func projectPaths(res *Result) []string {
	var out []string
	for _, p := range res.Projects {
		out = append(out, p.Path)
	}
	return out
}

type fakeVCS struct {
	dirty map[string]int
}

func (f fakeVCS) ProjectInfo(_ context.Context, path string) *vcs.Info {
	n, ok := f.dirty[path]
	if !ok {
		return nil
	}
	return &vcs.Info{IsRepo: true, HasUncommittedChanges: n > 0, UncommittedCount: n}
}

// ---------------------------------------------------------------------------
// discovery
// ---------------------------------------------------------------------------

func TestScan_NoMarkersFindsNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "notes.txt"), 10)
	mkdir(t, filepath.Join(root, "a", "b", "c"))

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.Empty(t, res.Projects)
	assert.Equal(t, 0, res.TotalProjects)
	assert.Equal(t, 5, res.DirectoriesScanned)
	assert.False(t, res.Cancelled)
}

func TestScan_ProjectBoundaryStopsRecursion(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "package.json"), 2)
	writeFile(t, filepath.Join(app, "tools", "Cargo.toml"), 2)
	writeFile(t, filepath.Join(app, "packages", "lib", "package.json"), 2)

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, app, res.Projects[0].Path)
	assert.Equal(t, ecosystem.NodeJS, res.Projects[0].Ecosystem)
	assert.Equal(t, "app", res.Projects[0].Name)
}

func TestScan_RootItselfIsProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), 2)

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, ecosystem.Go, res.Projects[0].Ecosystem)
}

func TestScan_SkipsHiddenAndNoiseDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".config", "tool", "package.json"), 2)
	writeFile(t, filepath.Join(root, "node_modules", "dep", "package.json"), 2)
	writeFile(t, filepath.Join(root, "Downloads", "thing", "Cargo.toml"), 2)
	writeFile(t, filepath.Join(root, "code", "real", "Cargo.toml"), 2)

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "code", "real")}, projectPaths(res))
}

func TestScan_Exclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep", "Cargo.toml"), 2)
	writeFile(t, filepath.Join(root, "archive", "old", "Cargo.toml"), 2)

	opts := scanOpts(root)
	opts.ExcludePaths = []string{"", "archive"}

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "keep")}, projectPaths(res))
}

func TestScan_EnabledEcosystemsOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rs", "Cargo.toml"), 2)
	writeFile(t, filepath.Join(root, "py", "pyproject.toml"), 2)

	opts := scanOpts(root)
	opts.Ecosystems = []ecosystem.ID{ecosystem.Python}

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, ecosystem.Python, res.Projects[0].Ecosystem)
}

func TestScan_ZeroEcosystemsWalksNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rs", "Cargo.toml"), 2)

	var events []Progress
	s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()), WithSink(SinkFunc(func(p Progress) {
		events = append(events, p)
	})))
	res, err := s.Scan(context.Background(), Options{Paths: []string{root}})
	require.NoError(t, err)
	assert.Empty(t, res.Projects)
	assert.Zero(t, res.DirectoriesScanned)
	require.Len(t, events, 1)
	assert.Equal(t, Complete, events[0].Phase)
}

func TestScan_NoReachableRoots(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), scanOpts(missing))
	require.NoError(t, err)
	assert.Empty(t, res.Projects)
	assert.Zero(t, res.DirectoriesScanned)
}

func TestScan_DirectoryLimitTruncates(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"d1", "d2", "d3", "d4", "d5"} {
		mkdir(t, filepath.Join(root, d))
	}
	settings := defaultSettings()
	settings.MaxDirectories = 3

	res, err := newScanner(ecosystem.Deps{}, fixed(settings)).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 3, res.DirectoriesScanned)
	assert.False(t, res.Cancelled)
}

func TestScan_OverlappingRootsVisitedOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Cargo.toml"), 2)

	opts := scanOpts(root)
	opts.Paths = []string{root, filepath.Join(root, "a")}

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, res.Projects, 1)
}

func TestScan_Symlinks(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "proj", "go.mod"), 2)

	root := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	// A cycle back to the root.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()))

	res, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.Empty(t, res.Projects)

	opts := scanOpts(root)
	opts.FollowSymlinks = true
	res, err = s.Scan(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "link", "proj")}, projectPaths(res))
}

// ---------------------------------------------------------------------------
// analysis
// ---------------------------------------------------------------------------

func TestScan_EndToEndSize(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "crate")
	writeFile(t, filepath.Join(proj, "Cargo.toml"), 40)
	writeFile(t, filepath.Join(proj, "src", "main.rs"), 70)
	writeFile(t, filepath.Join(proj, "target", "debug", "crate"), 4000)
	writeFile(t, filepath.Join(proj, "target", "debug", "deps", "x.rlib"), 1000)

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)

	p := res.Projects[0]
	assert.Equal(t, ecosystem.Rust, p.Ecosystem)
	assert.Equal(t, int64(5000), p.TotalSize)
	require.Len(t, p.Artifacts, 1)
	assert.Equal(t, "target", p.Artifacts[0].Pattern)
	assert.Equal(t, int64(5000), res.TotalSize)
	assert.Equal(t, ProjectID(proj), p.ID)

	require.Len(t, res.EcosystemSummary, 1)
	assert.Equal(t, ecosystem.Rust, res.EcosystemSummary[0].Ecosystem)
	assert.Equal(t, 1, res.EcosystemSummary[0].ProjectCount)
}

func TestScan_BackToBackResultsMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "package.json"), 2)
	writeFile(t, filepath.Join(root, "a", "node_modules", "x", "i.js"), 300)
	writeFile(t, filepath.Join(root, "b", "Cargo.toml"), 2)
	writeFile(t, filepath.Join(root, "b", "target", "t"), 700)
	writeFile(t, filepath.Join(root, "c", "d", "pyproject.toml"), 2)

	s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()))
	first, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)

	for _, r := range []*Result{first, second} {
		r.Duration = 0
		r.StartedAt = time.Time{}
	}
	assert.Equal(t, first, second)
	assert.Len(t, first.Projects, 3)
}

func TestScan_ProtectedPathOnOldCleanProject(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "keep", "svc")
	writeFile(t, filepath.Join(proj, "go.mod"), 2)
	writeFile(t, filepath.Join(proj, "vendor", "m", "m.go"), 50)
	setOld(t, proj)

	settings := defaultSettings()
	settings.ProtectedPaths = []string{filepath.Join(root, "keep")}

	res, err := newScanner(ecosystem.Deps{}, fixed(settings)).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)

	p := res.Projects[0]
	assert.Equal(t, classify.Dormant, p.Status)
	assert.False(t, p.HasUncommittedChanges)
	assert.True(t, p.IsProtected)
	assert.Contains(t, p.ProtectionReason, protect.ReasonProtectedPath)
	assert.Zero(t, res.EcosystemSummary[0].CleanableSize)
	assert.Equal(t, int64(50), res.EcosystemSummary[0].TotalSize)
}

func TestScan_UncommittedChangesAlwaysProtected(t *testing.T) {
	root := t.TempDir()
	dirty := filepath.Join(root, "dirty")
	clean := filepath.Join(root, "clean")
	for _, p := range []string{dirty, clean} {
		writeFile(t, filepath.Join(p, "Cargo.toml"), 2)
		writeFile(t, filepath.Join(p, "target", "t"), 100)
		setOld(t, p)
	}

	deps := ecosystem.Deps{VCS: fakeVCS{dirty: map[string]int{dirty: 2, clean: 0}}}
	res, err := newScanner(deps, fixed(defaultSettings())).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	require.Len(t, res.Projects, 2)

	for _, p := range res.Projects {
		if p.HasUncommittedChanges {
			assert.True(t, p.IsProtected, p.Path)
		}
		switch p.Path {
		case dirty:
			assert.Equal(t, "Uncommitted git changes (2 files)", p.ProtectionReason)
		case clean:
			assert.False(t, p.IsProtected)
		}
	}
	require.Len(t, res.EcosystemSummary, 1)
	assert.Equal(t, int64(200), res.EcosystemSummary[0].TotalSize)
	assert.Equal(t, int64(100), res.EcosystemSummary[0].CleanableSize)
}

func TestScan_FreshProjectIsActiveAndProtected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "new", "mix.exs"), 2)

	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, classify.Active, res.Projects[0].Status)
	assert.True(t, res.Projects[0].IsProtected)
	assert.Equal(t, protect.ReasonActive, res.Projects[0].ProtectionReason)
}

type fakeEditors struct{ at time.Time }

func (f fakeEditors) Usage(string) editor.Usage {
	return editor.Usage{Editors: map[string]time.Time{"VS Code": f.at}, MostRecent: &f.at}
}

func TestScan_EditorActivityRaisesStatus(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "p")
	writeFile(t, filepath.Join(proj, "Gemfile"), 2)
	setOld(t, proj)

	now := time.Now()
	s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()), WithEditorSource(fakeEditors{at: now.Add(-48 * time.Hour)}))
	res, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, classify.Active, res.Projects[0].Status)
	require.NotNil(t, res.Projects[0].LastEditorAccess)

	settings := defaultSettings()
	settings.Thresholds.ConsiderEditor = false
	s = newScanner(ecosystem.Deps{}, fixed(settings), WithEditorSource(fakeEditors{at: now}))
	res, err = s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.Equal(t, classify.Dormant, res.Projects[0].Status)
	assert.Nil(t, res.Projects[0].LastEditorAccess)
}

func TestScan_ThresholdsReadPerScan(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "p")
	writeFile(t, filepath.Join(proj, "composer.json"), 2)
	tenDaysAgo := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(proj, tenDaysAgo, tenDaysAgo))

	settings := defaultSettings()
	s := newScanner(ecosystem.Deps{}, func() Settings { return settings })

	res, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.Equal(t, classify.Recent, res.Projects[0].Status)

	settings.Thresholds.ActiveDays = 14
	res, err = s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.Equal(t, classify.Active, res.Projects[0].Status)
}

type panicPlugin struct{ *ecosystem.Base }

func (p *panicPlugin) CalculateSize(context.Context, string) (int64, []ecosystem.Artifact) {
	panic("boom")
}

func TestScan_AnalysisPanicKeepsStub(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "p")
	writeFile(t, filepath.Join(proj, "BOOM"), 2)

	reg := ecosystem.NewRegistry()
	require.NoError(t, reg.Register(&panicPlugin{ecosystem.NewBase(ecosystem.Descriptor{
		ID:      "boom",
		Markers: []string{"BOOM"},
	}, nil, ecosystem.Deps{Log: logging.Discard()})}))

	s := New(reg, fixed(defaultSettings()), WithLogger(logging.Discard()))
	res, err := s.Scan(context.Background(), Options{Paths: []string{root}, Ecosystems: []ecosystem.ID{"boom"}})
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, proj, res.Projects[0].Path)
	assert.Empty(t, res.Projects[0].Status)
	assert.Zero(t, res.Projects[0].TotalSize)
}

func TestScan_BatchesCoverEveryProject(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 23; i++ {
		writeFile(t, filepath.Join(root, "p"+string(rune('a'+i)), "go.mod"), 2)
	}
	settings := defaultSettings()
	settings.BatchSize = 5

	var analyzing []Progress
	s := newScanner(ecosystem.Deps{}, fixed(settings), WithSink(SinkFunc(func(p Progress) {
		if p.Phase == Analyzing && p.CurrentPath != "" {
			analyzing = append(analyzing, p)
		}
	})))
	res, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.Len(t, res.Projects, 23)
	assert.Len(t, analyzing, 5)
}

// ---------------------------------------------------------------------------
// progress, concurrency and cancellation
// ---------------------------------------------------------------------------

func TestScan_ProgressPhases(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Cargo.toml"), 2)
	writeFile(t, filepath.Join(root, "a", "target", "t"), 10)
	writeFile(t, filepath.Join(root, "b", "Cargo.toml"), 2)
	writeFile(t, filepath.Join(root, "b", "target", "t"), 20)

	var events []Progress
	s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()), WithSink(SinkFunc(func(p Progress) {
		events = append(events, p)
	})))
	_, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, Discovering, events[0].Phase)
	last := events[len(events)-1]
	assert.Equal(t, Complete, last.Phase)
	assert.Equal(t, 2, last.ProjectsFound)
	assert.Equal(t, int64(30), last.TotalSize)
	assert.Equal(t, 2, last.EcosystemCounts[ecosystem.Rust])

	discovered := 0
	for _, e := range events {
		if e.Phase == Discovering && e.CurrentPath != "" {
			discovered++
			assert.Equal(t, discovered, e.ProjectsFound)
		}
	}
	assert.Equal(t, 2, discovered)
}

func TestScan_ConcurrentScanRejected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "go.mod"), 2)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var once sync.Once
	s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()), WithSink(SinkFunc(func(p Progress) {
		if p.Phase == Discovering {
			once.Do(func() {
				entered <- struct{}{}
				<-release
			})
		}
	})))

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(context.Background(), scanOpts(root))
		done <- err
	}()

	<-entered
	assert.True(t, s.Running())
	_, err := s.Scan(context.Background(), scanOpts(root))
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Running())
}

func TestScan_CancelDuringDiscovery(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeFile(t, filepath.Join(root, name, "go.mod"), 2)
	}

	var (
		s         *Scanner
		cancelNow = true
		last      Progress
	)
	s = newScanner(ecosystem.Deps{}, fixed(defaultSettings()), WithSink(SinkFunc(func(p Progress) {
		last = p
		if cancelNow && p.Phase == Discovering && p.CurrentPath != "" {
			s.Cancel()
		}
	})))

	res, err := s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Projects)
	assert.Equal(t, Cancelled, last.Phase)
	assert.False(t, s.Running())

	cancelNow = false
	res, err = s.Scan(context.Background(), scanOpts(root))
	require.NoError(t, err)
	assert.False(t, res.Cancelled)
	assert.Len(t, res.Projects, 4)
}

// ctxVCS answers like the git provider does when its context is done:
// a degraded, clean-looking result.
type ctxVCS struct {
	dirty map[string]int
}

func (f ctxVCS) ProjectInfo(ctx context.Context, path string) *vcs.Info {
	if ctx.Err() != nil {
		return &vcs.Info{IsRepo: true, Degraded: true}
	}
	n := f.dirty[path]
	return &vcs.Info{IsRepo: true, HasUncommittedChanges: n > 0, UncommittedCount: n}
}

// cancellingPlugin stops the scan as soon as a project is analyzed.
type cancellingPlugin struct {
	ecosystem.Plugin
	cancel func()
}

func (p cancellingPlugin) AnalyzeActivity(ctx context.Context, path string) ecosystem.Activity {
	p.cancel()
	return p.Plugin.AnalyzeActivity(ctx, path)
}

func (p cancellingPlugin) CalculateSize(ctx context.Context, path string) (int64, []ecosystem.Artifact) {
	p.cancel()
	return p.Plugin.CalculateSize(ctx, path)
}

func TestScan_CancelDuringAnalysis(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	for _, p := range []string{a, b} {
		writeFile(t, filepath.Join(p, "go.mod"), 2)
		writeFile(t, filepath.Join(p, "vendor", "dep", "x.go"), 100)
		setOld(t, p)
	}

	deps := ecosystem.Deps{
		VCS: ctxVCS{dirty: map[string]int{a: 3, b: 3}},
		Log: logging.Discard(),
	}
	var s *Scanner
	reg := ecosystem.NewRegistry()
	require.NoError(t, reg.Register(cancellingPlugin{Plugin: ecosystem.NewGo(deps), cancel: func() { s.Cancel() }}))

	settings := defaultSettings()
	settings.BatchSize = 1
	s = New(reg, fixed(settings), WithLogger(logging.Discard()))

	res, err := s.Scan(context.Background(), Options{Paths: []string{root}, Ecosystems: []ecosystem.ID{ecosystem.Go}})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	require.Len(t, res.Projects, 1)

	p := res.Projects[0]
	assert.Equal(t, int64(100), p.TotalSize)
	require.Len(t, p.Artifacts, 1)
	assert.Equal(t, filepath.Join(p.Path, "vendor"), p.Artifacts[0].Path)
	assert.True(t, p.HasUncommittedChanges)
	assert.Equal(t, 3, p.UncommittedCount)
	assert.True(t, p.IsProtected)
	assert.Contains(t, p.ProtectionReason, "Uncommitted git changes (3 files)")
	assert.Equal(t, int64(100), res.TotalSize)
}

func TestScan_CancelAfterRunningIsHonored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "go.mod"), 2)

	for i := 0; i < 20; i++ {
		release := make(chan struct{})
		var once sync.Once
		s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()), WithSink(SinkFunc(func(p Progress) {
			if p.Phase == Discovering {
				once.Do(func() { <-release })
			}
		})))

		done := make(chan *Result, 1)
		go func() {
			res, err := s.Scan(context.Background(), scanOpts(root))
			assert.NoError(t, err)
			done <- res
		}()

		for !s.Running() {
			runtime.Gosched()
		}
		s.Cancel()
		close(release)

		res := <-done
		require.NotNil(t, res)
		assert.True(t, res.Cancelled, "attempt %d", i)
		assert.False(t, s.Running())
	}
}

func TestScan_ContextCancelledBeforeStart(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "go.mod"), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newScanner(ecosystem.Deps{}, fixed(defaultSettings())).Scan(ctx, scanOpts(root))
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Zero(t, res.DirectoriesScanned)
}

func TestCancel_NoScanIsNoop(t *testing.T) {
	s := newScanner(ecosystem.Deps{}, fixed(defaultSettings()))
	s.Cancel()
	assert.False(t, s.Running())
}

func TestProjectID_Stable(t *testing.T) {
	a := ProjectID("/home/dev/app")
	assert.Equal(t, a, ProjectID("/home/dev/app"))
	assert.NotEqual(t, a, ProjectID("/home/dev/app2"))
	assert.Len(t, a, 36)
	assert.True(t, strings.Count(a, "-") == 4)
}
