package scanner

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/devsweep/internal/classify"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/editor"
)

// ErrScanInProgress is returned by Scan while another scan on the same
// Scanner is running.
var ErrScanInProgress = errors.New("scan already in progress")

const (
	// DefaultMaxDirectories caps the directories visited by one scan.
	DefaultMaxDirectories = 50000

	// DefaultBatchSize is how many projects are analyzed concurrently.
	DefaultBatchSize = 10
)

// Settings are read at the start of each scan. Thresholds are also read
// on every classification.
type Settings struct {
	Thresholds             classify.Thresholds
	ProtectedPaths         []string
	ProtectUnreadableRepos bool
	MaxDirectories         int
	BatchSize              int
}

// EditorSource reports editor activity for a project.
type EditorSource interface {
	Usage(path string) editor.Usage
}

// Scanner runs at most one scan at a time.
type Scanner struct {
	registry   *ecosystem.Registry
	settings   func() Settings
	classifier *classify.Classifier
	editors    EditorSource
	sink       Sink
	log        logrus.FieldLogger
	now        func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithEditorSource enables editor activity signals.
func WithEditorSource(e EditorSource) Option {
	return func(s *Scanner) { s.editors = e }
}

// WithSink delivers progress events to sink.
func WithSink(sink Sink) Option {
	return func(s *Scanner) { s.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scanner) { s.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// New creates a Scanner over registry.
func New(registry *ecosystem.Registry, settings func() Settings, opts ...Option) *Scanner {
	s := &Scanner{
		registry: registry,
		settings: settings,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.classifier = classify.New(func() classify.Thresholds {
		return s.settings().Thresholds
	}, s.now)
	return s
}

// Running reports whether a scan is in flight.
func (s *Scanner) Running() bool {
	return s.running.Load()
}

// Cancel stops the in-flight scan. It is a no-op when no scan runs.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Scan discovers and analyzes projects under opts.Paths. A stopped scan
// (Cancel or ctx) returns the partial result with Cancelled set and a nil
// error. The only error is ErrScanInProgress.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.running.Load() {
		s.mu.Unlock()
		cancel()
		return nil, ErrScanInProgress
	}
	// running and cancel change together under mu, so a Cancel that sees
	// Running() == true always reaches this scan.
	s.cancel = cancel
	s.running.Store(true)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.running.Store(false)
		s.mu.Unlock()
		cancel()
	}()

	started := s.now()
	res := &Result{StartedAt: started, Projects: []Project{}, EcosystemSummary: []EcosystemSummary{}}
	settings := s.settings()

	log := s.log.WithField("roots", opts.Paths)
	if len(opts.Ecosystems) == 0 {
		log.Debug("no ecosystems enabled, nothing to scan")
		s.finish(res, started, Complete)
		return res, nil
	}
	roots := resolveRoots(opts.Paths, s.log)
	if len(roots) == 0 {
		log.Debug("no reachable scan roots")
		s.finish(res, started, Complete)
		return res, nil
	}

	log.Debug("scan started")
	s.emit(Progress{Phase: Discovering})
	d := s.discover(ctx, roots, opts, settings)
	res.DirectoriesScanned = d.visited
	res.Truncated = d.truncated
	if res.Truncated {
		log.WithField("limit", d.limit).Warn("directory limit reached, results are partial")
	}

	if ctx.Err() == nil {
		s.emit(Progress{Phase: Analyzing, ProjectsFound: len(d.stubs), EcosystemCounts: countEcosystems(d.stubs)})
		res.Projects = s.analyzeAll(ctx, d.stubs, settings)
	}

	summarize(res, s.registry.IDs())
	phase := Complete
	if ctx.Err() != nil {
		res.Cancelled = true
		phase = Cancelled
	}
	s.finish(res, started, phase)
	log.WithFields(logrus.Fields{
		"projects":    res.TotalProjects,
		"directories": res.DirectoriesScanned,
		"cancelled":   res.Cancelled,
	}).Info("scan finished")
	return res, nil
}

func (s *Scanner) finish(res *Result, started time.Time, phase Phase) {
	res.Duration = s.now().Sub(started)
	s.emit(Progress{
		Phase:           phase,
		ProjectsFound:   res.TotalProjects,
		TotalSize:       res.TotalSize,
		EcosystemCounts: countEcosystems(res.Projects),
	})
}

func (s *Scanner) emit(p Progress) {
	if s.sink == nil {
		return
	}
	if p.EcosystemCounts != nil {
		p.EcosystemCounts = maps.Clone(p.EcosystemCounts)
	}
	s.sink.Progress(p)
}

func countEcosystems(projects []Project) map[ecosystem.ID]int {
	counts := make(map[ecosystem.ID]int)
	for _, p := range projects {
		counts[p.Ecosystem]++
	}
	return counts
}
