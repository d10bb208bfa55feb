package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/devsweep/internal/logging"
)

// initRepo creates a repository with one committed file and returns the
// commit time.
func initRepo(t *testing.T, dir string) time.Time {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := &object.Signature{Name: "dev", Email: "dev@example.com", When: when}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return when
}

func newTestGit() *Git {
	return NewGit(5*time.Second, logging.Discard())
}

func TestProjectInfo_NotARepo(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, newTestGit().ProjectInfo(context.Background(), dir))
}

func TestProjectInfo_CleanRepo(t *testing.T) {
	dir := t.TempDir()
	when := initRepo(t, dir)

	info := newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.True(t, info.IsRepo)
	assert.False(t, info.Degraded)
	assert.False(t, info.HasUncommittedChanges)
	assert.Equal(t, 0, info.UncommittedCount)
	require.NotNil(t, info.LastCommit)
	assert.True(t, info.LastCommit.Equal(when), "got %v want %v", info.LastCommit, when)
	assert.NotEmpty(t, info.Branch)
}

func TestProjectInfo_DirtyRepo(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	// One modified tracked file and one untracked file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("new\n"), 0o644))

	info := newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.True(t, info.HasUncommittedChanges)
	assert.Equal(t, 2, info.UncommittedCount)
}

func TestProjectInfo_GlobalExcludesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))

	ignore := filepath.Join(home, "global-ignore")
	require.NoError(t, os.WriteFile(ignore, []byte("# editor noise\n.DS_Store\n*.swp\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".gitconfig"),
		[]byte("[core]\n\texcludesfile = "+ignore+"\n"), 0o644))

	dir := t.TempDir()
	initRepo(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md.swp"), []byte("x"), 0o644))

	info := newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.False(t, info.Degraded)
	assert.False(t, info.HasUncommittedChanges)
	assert.Equal(t, 0, info.UncommittedCount)

	// Files the excludes do not cover still count.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	info = newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.Equal(t, 1, info.UncommittedCount)
}

func TestProjectInfo_XDGIgnoreFile(t *testing.T) {
	home := t.TempDir()
	xdg := filepath.Join(home, "xdg")
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "git", "ignore"), []byte(".idea/\n"), 0o644))

	dir := t.TempDir()
	initRepo(t, dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".idea"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".idea", "workspace.xml"), []byte("x"), 0o644))

	info := newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.False(t, info.HasUncommittedChanges)
}

func TestProjectInfo_EmptyRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	info := newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.False(t, info.Degraded)
	assert.Nil(t, info.LastCommit)
	assert.False(t, info.HasUncommittedChanges)
}

func TestProjectInfo_RemotePrefersOrigin(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "backup", URLs: []string{"https://example.com/backup.git"}})
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"https://example.com/origin.git"}})
	require.NoError(t, err)

	info := newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.Equal(t, "https://example.com/origin.git", info.RemoteURL)
}

func TestProjectInfo_CorruptRepoDegrades(t *testing.T) {
	dir := t.TempDir()
	// A .git file without a gitdir pointer cannot be opened.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git"), []byte("garbage"), 0o644))

	info := newTestGit().ProjectInfo(context.Background(), dir)
	require.NotNil(t, info)
	assert.True(t, info.IsRepo)
	assert.True(t, info.Degraded)
	assert.False(t, info.HasUncommittedChanges)
	assert.Equal(t, 0, info.UncommittedCount)
}

func TestProjectInfo_CancelledContextDegrades(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	info := newTestGit().ProjectInfo(ctx, dir)
	require.NotNil(t, info)
	assert.True(t, info.IsRepo)
	// Either the query won the race or it degraded; it must never report
	// changes that do not exist.
	assert.False(t, info.HasUncommittedChanges)
}
