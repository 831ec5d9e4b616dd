package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hdrconv/internal/conversion"
)

const fakeFFmpeg = `#!/bin/sh
echo "Encoders:"
echo " V....D libx265              libx265 H.265 / HEVC"
echo " A....D aac                  AAC (Advanced Audio Coding)"
`

const fakeFFprobe = `#!/bin/sh
case "$*" in
*-show_format*)
  echo '{"streams":[{"codec_type":"video","codec_name":"hevc"}],"format":{"duration":"8.000000","size":"2048"}}' ;;
*sdr*)
  echo '{"streams":[{"color_primaries":"bt709","color_transfer":"bt709","color_space":"bt709","pix_fmt":"yuv420p"}]}' ;;
*)
  echo '{"streams":[{"color_primaries":"bt2020","color_transfer":"arib-std-b67","color_space":"bt2020nc","pix_fmt":"yuv420p10le"}]}' ;;
esac
`

type cliTestEnv struct {
	baseDir    string
	binDir     string
	configPath string
	logDir     string
	outputDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("HDRCONV_TOOLS_DIR", "")
	t.Setenv("HDRCONV_NTFY_TOPIC", "")

	env := &cliTestEnv{
		baseDir:    base,
		binDir:     filepath.Join(base, "bin"),
		configPath: filepath.Join(home, ".config", "hdrconv", "config.toml"),
		logDir:     filepath.Join(base, "logs"),
		outputDir:  filepath.Join(base, "out"),
	}
	writeExecutable(t, filepath.Join(env.binDir, "ffmpeg"), fakeFFmpeg)
	writeExecutable(t, filepath.Join(env.binDir, "ffprobe"), fakeFFprobe)
	env.writeConfig(t, "")
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T, extra string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
log_dir = %q
upload_dir = %q
state_dir = %q

[tools]
bundled_dirs = [%q]
terminate_grace_seconds = 1

[server]
bind = "127.0.0.1:0"
open_browser = false
%s`,
		filepath.ToSlash(e.logDir),
		filepath.ToSlash(filepath.Join(e.baseDir, "uploads")),
		filepath.ToSlash(filepath.Join(e.baseDir, "state")),
		filepath.ToSlash(e.binDir),
		extra,
	)
	if err := os.MkdirAll(filepath.Dir(e.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(e.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeExecutable(t *testing.T, path, script string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

// useFakeEncoder routes encoder launches to TestHelperProcess and fixes the
// probed duration.
func useFakeEncoder(t *testing.T, mode string) {
	t.Helper()
	restoreCmd := conversion.SetCommandContextForTests(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HDRCONV_HELPER_MODE="+mode)
		return cmd
	})
	restoreProbe := conversion.SetProbeForTests(func(context.Context, string, string, time.Duration) (float64, bool) {
		return 4, true
	})
	t.Cleanup(func() {
		restoreCmd()
		restoreProbe()
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	input := ""
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			input = args[i+1]
		}
	}
	output := args[len(args)-1]

	if os.Getenv("HDRCONV_HELPER_MODE") == "failbroken" && strings.Contains(input, "broken") {
		fmt.Fprintln(os.Stderr, "Invalid data found when processing input")
		os.Exit(1)
	}
	for _, ts := range []string{"00:00:01.000000", "00:00:02.000000", "00:00:04.000000"} {
		fmt.Println("out_time=" + ts)
		fmt.Println("progress=continue")
	}
	fmt.Println("progress=end")
	if err := os.WriteFile(output, []byte("hevc-hlg"), 0o644); err != nil {
		os.Exit(2)
	}
	os.Exit(0)
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
