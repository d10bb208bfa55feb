package editor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestUsage_NoEditors(t *testing.T) {
	dir := t.TempDir()
	u := NewDetector(0).Usage(dir)
	assert.Empty(t, u.Editors)
	assert.Nil(t, u.MostRecent)
}

func TestUsage_VSCodeUsesNewestChild(t *testing.T) {
	dir := t.TempDir()
	vscode := filepath.Join(dir, ".vscode")
	require.NoError(t, os.Mkdir(vscode, 0o755))
	settings := filepath.Join(vscode, "settings.json")
	require.NoError(t, os.WriteFile(settings, []byte("{}"), 0o644))

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	touch(t, settings, newer)
	touch(t, vscode, old)

	u := NewDetector(0).Usage(dir)
	require.Contains(t, u.Editors, "VS Code")
	assert.True(t, u.Editors["VS Code"].Equal(newer))
	require.NotNil(t, u.MostRecent)
	assert.True(t, u.MostRecent.Equal(newer))
}

func TestUsage_MostRecentAcrossEditors(t *testing.T) {
	dir := t.TempDir()
	idea := filepath.Join(dir, ".idea")
	fleet := filepath.Join(dir, ".fleet")
	require.NoError(t, os.Mkdir(idea, 0o755))
	require.NoError(t, os.Mkdir(fleet, 0o755))

	ideaTime := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	fleetTime := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	touch(t, idea, ideaTime)
	touch(t, fleet, fleetTime)

	u := NewDetector(0).Usage(dir)
	assert.Len(t, u.Editors, 2)
	require.NotNil(t, u.MostRecent)
	assert.True(t, u.MostRecent.Equal(fleetTime))
}

func TestUsage_XcodeBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "App.xcodeproj")
	require.NoError(t, os.Mkdir(bundle, 0o755))
	at := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	touch(t, bundle, at)

	u := NewDetector(0).Usage(dir)
	require.Contains(t, u.Editors, "Xcode")
	assert.True(t, u.Editors["Xcode"].Equal(at))
}

func TestUsage_MetadataFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	// A regular file named like a metadata dir is not an editor signal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".idea"), nil, 0o644))

	u := NewDetector(0).Usage(dir)
	assert.NotContains(t, u.Editors, "JetBrains")
}

func TestIsEditorProcess(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Code Helper (Renderer)", true},
		{"Cursor", true},
		{"Xcode", true},
		{"idea64", true},
		{"zed", true},
		{"bash", false},
		{"postgres", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsEditorProcess(tc.name))
		})
	}
}

func TestWithin(t *testing.T) {
	root := filepath.Join("/home", "dev", "app")
	assert.True(t, Within(root, root))
	assert.True(t, Within(root, filepath.Join(root, "src", "main.go")))
	assert.False(t, Within(root, filepath.Join("/home", "dev", "app2", "x")))
	assert.False(t, Within(root, ""))
}
