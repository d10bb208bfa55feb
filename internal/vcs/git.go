// Package vcs reports version-control signals for a project directory:
// last commit time, working tree dirtiness, branch and remote.
package vcs

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single repository query.
const DefaultTimeout = 10 * time.Second

// Info is the version-control state of one project.
type Info struct {
	// IsRepo is true whenever a .git entry exists, even if reading it failed.
	IsRepo bool `json:"is_repo"`

	// LastCommit is the committer time of HEAD, nil for empty repositories
	// or when it could not be read.
	LastCommit *time.Time `json:"last_commit,omitempty"`

	// HasUncommittedChanges is true when any path is untracked, modified,
	// deleted, staged or renamed.
	HasUncommittedChanges bool `json:"has_uncommitted_changes"`

	// UncommittedCount is the number of paths with pending changes.
	UncommittedCount int `json:"uncommitted_count"`

	Branch    string `json:"branch,omitempty"`
	RemoteURL string `json:"remote_url,omitempty"`

	// Degraded marks a repository whose state could not be read. Such a
	// repository reports no uncommitted changes.
	Degraded bool `json:"degraded,omitempty"`
}

// Provider answers version-control queries for a directory.
type Provider interface {
	// ProjectInfo returns nil when path is not a repository.
	ProjectInfo(ctx context.Context, path string) *Info
}

// Git reads repositories in-process with go-git. Working tree status
// honors the same exclude files as the git CLI: the system and global
// core.excludesfile, or $XDG_CONFIG_HOME/git/ignore when no global one is
// set. They are read once per Git.
type Git struct {
	timeout  time.Duration
	log      logrus.FieldLogger
	excludes func() []gitignore.Pattern
}

// NewGit creates a Git provider. A non-positive timeout uses DefaultTimeout.
func NewGit(timeout time.Duration, log logrus.FieldLogger) *Git {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	g := &Git{timeout: timeout, log: log}
	g.excludes = sync.OnceValue(func() []gitignore.Pattern { return loadExcludes(g.log) })
	return g
}

// HasRepo reports whether path contains a .git entry (directory or gitfile).
func HasRepo(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// ProjectInfo implements Provider.
func (g *Git) ProjectInfo(ctx context.Context, path string) *Info {
	if !HasRepo(path) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type outcome struct {
		info *Info
		err  error
	}
	// go-git has no context support for status, so the query runs in its
	// own goroutine and is abandoned on timeout.
	done := make(chan outcome, 1)
	go func() {
		info, err := readRepo(path, g.excludes())
		done <- outcome{info, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			g.log.WithField("path", path).WithError(out.err).Warn("reading git repository failed")
			return degraded()
		}
		return out.info
	case <-ctx.Done():
		g.log.WithField("path", path).Warn("git query timed out")
		return degraded()
	}
}

func degraded() *Info {
	return &Info{IsRepo: true, Degraded: true}
}

func readRepo(path string, excludes []gitignore.Pattern) (*Info, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}

	info := &Info{IsRepo: true}

	head, err := repo.Head()
	switch {
	case err == nil:
		if head.Name().IsBranch() {
			info.Branch = head.Name().Short()
		}
		if commit, cerr := repo.CommitObject(head.Hash()); cerr == nil {
			when := commit.Committer.When
			info.LastCommit = &when
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Empty repository: no commits yet.
		if ref, rerr := repo.Reference(plumbing.HEAD, false); rerr == nil && ref.Target().IsBranch() {
			info.Branch = ref.Target().Short()
		}
	default:
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	wt.Excludes = append(wt.Excludes, excludes...)
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	for _, fs := range status {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		info.UncommittedCount++
	}
	info.HasUncommittedChanges = info.UncommittedCount > 0

	info.RemoteURL = primaryRemote(repo)
	return info, nil
}

// loadExcludes reads the exclude patterns that apply to every repository,
// lowest priority first.
func loadExcludes(log logrus.FieldLogger) []gitignore.Pattern {
	root := osfs.New("/")
	system, err := gitignore.LoadSystemPatterns(root)
	if err != nil {
		log.WithError(err).Debug("reading system git excludes failed")
	}
	global, err := gitignore.LoadGlobalPatterns(root)
	if err != nil {
		log.WithError(err).Debug("reading global git excludes failed")
	}
	if len(global) == 0 {
		global = readIgnoreFile(xdgIgnoreFile())
	}
	return append(system, global...)
}

// xdgIgnoreFile is git's default core.excludesfile.
func xdgIgnoreFile() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "git", "ignore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "git", "ignore")
}

func readIgnoreFile(path string) []gitignore.Pattern {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var ps []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	return ps
}

// primaryRemote returns the first URL of "origin", or of the first remote
// by name when there is no origin.
func primaryRemote(repo *git.Repository) string {
	remotes, err := repo.Remotes()
	if err != nil || len(remotes) == 0 {
		return ""
	}
	sort.Slice(remotes, func(i, j int) bool {
		ni, nj := remotes[i].Config().Name, remotes[j].Config().Name
		if ni == "origin" || nj == "origin" {
			return ni == "origin"
		}
		return ni < nj
	})
	urls := remotes[0].Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}
