package conversion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestValidateExtensions(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		valid bool
	}{
		{"clip.mp4", true},
		{"clip.MOV", true},
		{"clip.mkv", true},
		{"clip.Avi", true},
		{"clip.webm", true},
		{"clip.M4V", true},
		{"clip.wmv", true},
		{"clip.flv", true},
		{"clip.txt", false},
		{"clip.mp3", false},
		{"clip.mpeg", false},
		{"clip", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name)
			touch(t, path)
			err := Validate(path)
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.valid {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				if !strings.Contains(err.Error(), "supported: .avi, .flv, .m4v, .mkv, .mov, .mp4, .webm, .wmv") {
					t.Fatalf("expected supported list in error, got %q", err.Error())
				}
			}
			if IsSupported(path) != tc.valid {
				t.Fatalf("IsSupported(%q) = %v, want %v", path, !tc.valid, tc.valid)
			}
		})
	}
}

func TestValidateMissingAndDirectory(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.mp4")
	err := Validate(missing)
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "file not found: "+missing) {
		t.Fatalf("expected file not found error, got %v", err)
	}

	folder := filepath.Join(dir, "folder.mov")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	err = Validate(folder)
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "not a file") {
		t.Fatalf("expected not a file error, got %v", err)
	}
}

func TestSupportedExtensionsSorted(t *testing.T) {
	got := strings.Join(SupportedExtensions(), " ")
	if got != ".avi .flv .m4v .mkv .mov .mp4 .webm .wmv" {
		t.Fatalf("unexpected extensions: %s", got)
	}
}

func TestResolveOutputPathDefault(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mov")
	touch(t, input)

	got, err := ResolveOutputPath(Request{InputPath: input})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "clip_HDR.mp4"); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestResolveOutputPathCollisions(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mov")
	touch(t, input)
	touch(t, filepath.Join(dir, "clip_HDR.mp4"))
	touch(t, filepath.Join(dir, "clip_HDR_1.mp4"))

	got, err := ResolveOutputPath(Request{InputPath: input})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "clip_HDR_2.mp4"); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestResolveOutputPathOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in", "holiday.mkv")
	outDir := filepath.Join(dir, "out")
	touch(t, input)

	got, err := ResolveOutputPath(Request{InputPath: input, OutputDir: outDir})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(outDir, "holiday_HDR.mp4"); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestResolveOutputPathOverrideGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "custom.mov")
	touch(t, override)

	got, err := ResolveOutputPath(Request{InputPath: filepath.Join(dir, "a.mp4"), OutputPath: override})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "custom_1.mov"); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
