package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hdrconv/internal/conversion"
	"hdrconv/internal/history"
)

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No conversions recorded yet")
}

func TestHistoryRecordsConversions(t *testing.T) {
	env := setupCLITestEnv(t)
	useFakeEncoder(t, "failbroken")
	dir := t.TempDir()
	good := writeInput(t, dir, "good.mov")
	broken := writeInput(t, dir, "broken.mp4")

	if _, _, err := runCLI(t, []string{"convert", good, broken}, env.configPath, ""); err == nil {
		t.Fatal("expected batch with a failure to return an error")
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "good.mov")
	requireContains(t, out, "broken.mp4")
	requireContains(t, out, "Completed")
	requireContains(t, out, "Encoder Error")
	requireContains(t, out, "cli")
	requireContains(t, out, "Total: 1 completed, 1 failed, 0 cancelled")

	out, _, err = runCLI(t, []string{"history", "--failed"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history --failed: %v", err)
	}
	if strings.Contains(out, "good.mov") {
		t.Fatalf("expected only failed entries, got:\n%s", out)
	}
	requireContains(t, out, "broken.mp4")

	out, _, err = runCLI(t, []string{"history", "--clear"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history --clear: %v", err)
	}
	requireContains(t, out, "Removed 2 entries")
}

func TestHistoryRejectsClearWithPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"history", "--clear", "--prune", "24h"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "cannot be combined") {
		t.Fatalf("expected flag conflict error, got %v", err)
	}
}

func TestRenderHistoryTable(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []history.Entry{
		{
			Origin:      history.OriginWeb,
			InputPath:   filepath.Join("uploads", "clip.mkv"),
			Status:      conversion.StatusCompleted,
			OutputBytes: 2048,
			Elapsed:     90 * time.Second,
			FinishedAt:  now.Add(-2 * time.Hour),
		},
		{
			Origin:     history.OriginCLI,
			InputPath:  "stopped.mov",
			Status:     conversion.StatusCancelled,
			ErrorKind:  conversion.KindCancelled,
			FinishedAt: now.Add(-time.Minute),
		},
	}
	out := renderHistoryTable(entries, now)
	for _, want := range []string{"clip.mkv", "web", "2.0 kB", "1m30s", "2 hours ago", "Cancelled", "1 minute ago"} {
		requireContains(t, out, want)
	}
}
