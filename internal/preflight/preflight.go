package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"hdrconv/internal/config"
	"hdrconv/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the readiness checks for the given config. The encoder
// check only runs when tools.Encoder was resolved.
func RunAll(ctx context.Context, cfg *config.Config, tools deps.Tools) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}
	results = append(results, checkUploadDir(cfg.Paths.UploadDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if tools.Encoder != "" {
		results = append(results, CheckEncoderSupport(ctx, tools.Encoder))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

// checkUploadDir tolerates a missing upload directory; serve creates it on
// startup.
func checkUploadDir(path string) Result {
	const name = "Upload directory"
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first upload)", path)}
	}
	return CheckDirectoryAccess(name, path)
}
