package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrToolNotFound indicates that an encoder or prober executable could not be
// resolved from any candidate location.
var ErrToolNotFound = errors.New("tool not found")

// InstallGuidance is appended to tool lookup failures.
const InstallGuidance = `Install FFmpeg or place it in a bundled tools directory (see [tools] bundled_dirs).
  macOS:   brew install ffmpeg
  Linux:   install the "ffmpeg" package with your distribution's package manager
  Windows: download a build from https://www.gyan.dev/ffmpeg/builds/`

// Locator resolves tool executables from an explicit, ordered list of
// candidate directories before falling back to PATH.
type Locator struct {
	// Candidates are directories searched in order. Each directory is checked
	// for <dir>/<tool> and <dir>/ffmpeg/<tool>.
	Candidates []string

	lookPath func(string) (string, error)
}

// NewLocator builds a locator that searches bundledDirs, then the directory
// holding the running executable, then PATH.
func NewLocator(bundledDirs []string) *Locator {
	candidates := make([]string, 0, len(bundledDirs)+1)
	seen := make(map[string]struct{}, len(bundledDirs)+1)
	add := func(dir string) {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return
		}
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		candidates = append(candidates, dir)
	}
	for _, dir := range bundledDirs {
		add(dir)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		add(filepath.Dir(exe))
	}
	return &Locator{Candidates: candidates}
}

// Locate returns the absolute path of tool. A tool given as a path (containing
// a separator) is only checked at that location.
func (l *Locator) Locate(tool string) (string, error) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return "", fmt.Errorf("%w: no tool name configured\n%s", ErrToolNotFound, InstallGuidance)
	}
	if strings.ContainsRune(tool, filepath.Separator) || strings.ContainsRune(tool, '/') {
		if isExecutableFile(tool) {
			return filepath.Abs(tool)
		}
		return "", fmt.Errorf("%w: %s is not an executable file\n%s", ErrToolNotFound, tool, InstallGuidance)
	}

	name := executableName(tool)
	if l != nil {
		for _, dir := range l.Candidates {
			for _, candidate := range []string{
				filepath.Join(dir, name),
				filepath.Join(dir, "ffmpeg", name),
			} {
				if isExecutableFile(candidate) {
					return filepath.Abs(candidate)
				}
			}
		}
	}

	lookPath := exec.LookPath
	if l != nil && l.lookPath != nil {
		lookPath = l.lookPath
	}
	if resolved, err := lookPath(tool); err == nil {
		return resolved, nil
	}
	return "", fmt.Errorf("%w: %s\n%s", ErrToolNotFound, tool, InstallGuidance)
}

// Tools holds the resolved executables used for a conversion. Prober is empty
// when no ffprobe could be found; conversions then run without a duration.
type Tools struct {
	Encoder string
	Prober  string
}

// ResolveTools locates the encoder (required) and prober (optional).
func ResolveTools(l *Locator, encoder, prober string) (Tools, error) {
	var tools Tools
	path, err := l.Locate(encoder)
	if err != nil {
		return tools, err
	}
	tools.Encoder = path
	if strings.TrimSpace(prober) != "" {
		if path, err := l.Locate(prober); err == nil {
			tools.Prober = path
		}
	}
	return tools, nil
}

func executableName(base string) string {
	if runtime.GOOS == "windows" && !strings.EqualFold(filepath.Ext(base), ".exe") {
		return base + ".exe"
	}
	return base
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return isExecutable(info)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
