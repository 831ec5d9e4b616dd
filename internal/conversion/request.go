package conversion

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"hdrconv/internal/fileutil"
)

// OutputSuffix is appended to the input stem to name the default output.
const OutputSuffix = "_HDR"

// OutputExtension is the container extension of every conversion.
const OutputExtension = ".mp4"

var supportedExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".avi":  {},
	".webm": {},
	".m4v":  {},
	".wmv":  {},
	".flv":  {},
}

// Request describes one conversion.
type Request struct {
	InputPath string
	// OutputPath overrides the default "<stem>_HDR.mp4" name. A collision
	// still gets a numeric suffix.
	OutputPath string
	// OutputDir places the default output name in another directory.
	OutputDir string
}

// SupportedExtensions returns the accepted input extensions, sorted, with
// leading dots.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// IsSupported reports whether path has a supported extension (case-insensitive).
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Validate checks that path is an existing regular file with a supported
// extension. Failures wrap ErrInvalidInput.
func Validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return wrap(ErrInvalidInput, "", "no input file given", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return wrap(ErrInvalidInput, "", "file not found: "+path, nil)
		}
		return wrap(ErrInvalidInput, "", "cannot read "+path, err)
	}
	if !info.Mode().IsRegular() {
		return wrap(ErrInvalidInput, "", "not a file: "+path, nil)
	}
	if !IsSupported(path) {
		return wrap(ErrInvalidInput, "", UnsupportedFormatDetail(path), nil)
	}
	return nil
}

// UnsupportedFormatDetail describes why path's extension was rejected.
func UnsupportedFormatDetail(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported format %s (supported: %s)", ext, strings.Join(SupportedExtensions(), ", "))
}

// DefaultOutputPath returns "<dir>/<stem>_HDR.mp4" without collision checks.
// dir defaults to the input's directory.
func DefaultOutputPath(inputPath, dir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, stem+OutputSuffix+OutputExtension)
}

// ResolveOutputPath returns the absolute path the conversion will write. An
// existing file is never overwritten: "_1", "_2", ... are appended to the
// stem until a free name is found. The check is not atomic, so two
// conversions racing for the same name can still collide.
func ResolveOutputPath(req Request) (string, error) {
	candidate := strings.TrimSpace(req.OutputPath)
	if candidate == "" {
		candidate = DefaultOutputPath(req.InputPath, req.OutputDir)
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", wrap(ErrInvalidInput, "resolve output path", candidate, err)
	}
	free, err := fileutil.NextAvailablePath(abs)
	if err != nil {
		return "", wrap(ErrInvalidInput, "resolve output path", abs, err)
	}
	return free, nil
}
