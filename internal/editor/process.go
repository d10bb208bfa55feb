package editor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// editorProcessNames are lower-case substrings of editor process names.
var editorProcessNames = []string{"code", "cursor", "xcode", "idea", "zed"}

// ProcessInspector reports whether an editor process has a project open.
type ProcessInspector interface {
	// OpenIn returns the name of an editor process holding projectPath open.
	OpenIn(ctx context.Context, projectPath string) (string, bool)
}

// Processes inspects the host process table with gopsutil.
type Processes struct{}

// OpenIn implements ProcessInspector. Any failure listing or inspecting
// processes reads as "not open".
func (Processes) OpenIn(ctx context.Context, projectPath string) (string, bool) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", false
	}
	root := filepath.Clean(projectPath)
	self := int32(os.Getpid())

	for _, p := range procs {
		if ctx.Err() != nil {
			return "", false
		}
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil || !IsEditorProcess(name) {
			continue
		}
		if cwd, err := p.CwdWithContext(ctx); err == nil && Within(root, cwd) {
			return name, true
		}
		files, err := p.OpenFilesWithContext(ctx)
		if err != nil {
			continue
		}
		for _, f := range files {
			if Within(root, f.Path) {
				return name, true
			}
		}
	}
	return "", false
}

// IsEditorProcess reports whether a process name looks like a known editor.
func IsEditorProcess(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range editorProcessNames {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// Within reports whether path equals root or lies beneath it.
func Within(root, path string) bool {
	if path == "" {
		return false
	}
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
