package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hdrconv/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HDRCONV_TOOLS_DIR", "")
	t.Setenv("HDRCONV_NTFY_TOPIC", "")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "hdrconv", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Paths.UploadDir != filepath.Join(tempHome, "Downloads") {
		t.Fatalf("unexpected upload dir: %q", cfg.Paths.UploadDir)
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("expected empty output dir by default, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Server.Bind != "127.0.0.1:8765" {
		t.Fatalf("unexpected server bind: %q", cfg.Server.Bind)
	}
	if cfg.Tools.Encoder != "ffmpeg" || cfg.Tools.Prober != "ffprobe" {
		t.Fatalf("unexpected tool names: %q %q", cfg.Tools.Encoder, cfg.Tools.Prober)
	}
	if cfg.Tools.ProbeTimeoutSeconds != 30 {
		t.Fatalf("expected 30s probe timeout, got %d", cfg.Tools.ProbeTimeoutSeconds)
	}
	if len(cfg.Tools.BundledDirs) != 0 {
		t.Fatalf("expected no bundled dirs, got %v", cfg.Tools.BundledDirs)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hdrconv.toml")
	t.Setenv("HDRCONV_TOOLS_DIR", "")
	t.Setenv("HDRCONV_NTFY_TOPIC", "")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Tools struct {
			BundledDirs []string `toml:"bundled_dirs"`
			Encoder     string   `toml:"encoder"`
		} `toml:"tools"`
		Server struct {
			Bind string `toml:"bind"`
		} `toml:"server"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Tools.BundledDirs = []string{filepath.Join(tempDir, "bin"), filepath.Join(tempDir, "bin"), " "}
	custom.Tools.Encoder = "/opt/ffmpeg/bin/ffmpeg"
	custom.Server.Bind = "0.0.0.0:9000"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if len(cfg.Tools.BundledDirs) != 1 || cfg.Tools.BundledDirs[0] != filepath.Join(tempDir, "bin") {
		t.Fatalf("expected deduplicated bundled dirs, got %v", cfg.Tools.BundledDirs)
	}
	if cfg.Tools.Encoder != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected encoder override, got %q", cfg.Tools.Encoder)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("expected bind override, got %q", cfg.Server.Bind)
	}
}

func TestEnvToolsDirIsSearchedFirst(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hdrconv.toml")
	content := "[tools]\nbundled_dirs = [\"" + filepath.ToSlash(filepath.Join(tempDir, "configured")) + "\"]\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envDir := filepath.Join(tempDir, "env")
	t.Setenv("HDRCONV_TOOLS_DIR", envDir)
	t.Setenv("HDRCONV_NTFY_TOPIC", "https://ntfy.example/hdr")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Tools.BundledDirs) != 2 {
		t.Fatalf("expected two bundled dirs, got %v", cfg.Tools.BundledDirs)
	}
	if cfg.Tools.BundledDirs[0] != envDir {
		t.Fatalf("expected env dir first, got %v", cfg.Tools.BundledDirs)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/hdr" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "negative probe timeout",
			mutate: func(c *config.Config) { c.Tools.ProbeTimeoutSeconds = -1 },
			want:   "tools.probe_timeout_seconds",
		},
		{
			name:   "bind without port",
			mutate: func(c *config.Config) { c.Server.Bind = "localhost" },
			want:   "server.bind",
		},
		{
			name:   "negative active jobs",
			mutate: func(c *config.Config) { c.Server.MaxActiveJobs = -2 },
			want:   "server.max_active_jobs",
		},
		{
			name:   "topic without scheme",
			mutate: func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" },
			want:   "notifications.ntfy_topic",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("HDRCONV_TOOLS_DIR", "")
	t.Setenv("HDRCONV_NTFY_TOPIC", "")
	path := filepath.Join(tempDir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Server.MaxUploadMiB != 8192 {
		t.Fatalf("unexpected upload limit: %d", cfg.Server.MaxUploadMiB)
	}
	if cfg.Server.MaxActiveJobs != 1 {
		t.Fatalf("unexpected active job limit: %d", cfg.Server.MaxActiveJobs)
	}
	if cfg.MaxUploadBytes() != 8192<<20 {
		t.Fatalf("unexpected upload bytes: %d", cfg.MaxUploadBytes())
	}
}

func TestExpandPathTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/videos")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "videos") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
