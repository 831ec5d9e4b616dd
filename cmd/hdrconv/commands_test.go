package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hdrconv/internal/deps"
)

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "bundled_dirs")
	requireContains(t, out, "max_active_jobs = 1")
}

func TestDoctorReportsReadyTools(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath, "")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "[OK] Ready ("+filepath.Join(env.binDir, "ffmpeg")+")")
	requireContains(t, out, "libx265 and aac available")
}

func TestDoctorFailsWithoutEncoder(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeConfig(t, "")
	if err := os.Remove(filepath.Join(env.binDir, "ffmpeg")); err != nil {
		t.Fatalf("remove fake ffmpeg: %v", err)
	}
	t.Setenv("PATH", env.binDir)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected doctor to fail without ffmpeg")
	}
	requireContains(t, err.Error(), "FFmpeg is required")
	requireContains(t, out, "[ERROR]")
}

func TestVerifyReportsHLG(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeInput(t, t.TempDir(), "clip_HDR.mp4")

	out, _, err := runCLI(t, []string{"verify", input}, env.configPath, "")
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	requireContains(t, out, "arib-std-b67")
	requireContains(t, out, "yuv420p10le")
	requireContains(t, out, "2.0 kB")
	requireContains(t, out, "hevc")
}

func TestVerifyFlagsSDR(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeInput(t, t.TempDir(), "sdr.mp4")

	out, _, err := runCLI(t, []string{"verify", input}, env.configPath, "")
	if err == nil {
		t.Fatal("expected verify to fail for SDR input")
	}
	requireContains(t, out, "bt709")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath, "")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusOK, "Ready", true)
	if !strings.HasPrefix(got, "\x1b[32m") {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "\x1b[0m") {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: true, Command: "/opt/ffmpeg/bin/ffmpeg"},
		{Name: "FFprobe", Available: false, Optional: true, Detail: `binary "ffprobe" not found`},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] Ready (/opt/ffmpeg/bin/ffmpeg)") {
		t.Fatalf("unexpected ready line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN]") || !strings.Contains(lines[1], "indeterminate") {
		t.Fatalf("expected optional warning, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "Missing") {
		t.Fatalf("expected missing summary, got %q", lines[2])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]column{col("A"), num("B")}, [][]string{{"only"}, {"x", "y", "dropped"}})
	requireContains(t, out, "only")
	if strings.Contains(out, "dropped") {
		t.Fatalf("expected extra cells to be dropped, got %q", out)
	}
	if strings.Count(out, "\n") < 4 {
		t.Fatalf("expected a rendered table, got %q", out)
	}
}

func TestConfigPathReportsMissingFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "absent.toml")
	out, _, err := runCLI(t, []string{"config", "path"}, target, "")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, target)
	requireContains(t, out, "not created")
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", want: 0},
		{name: "cancelled", err: fmt.Errorf("run: %w", context.Canceled), want: exitInterrupted},
		{name: "failure", err: errors.New("boom"), want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
