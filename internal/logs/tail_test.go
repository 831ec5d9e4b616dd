package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"hdrconv/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hdrconv.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"b", "c"}) {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", result.Offset)
	}
}

func TestTailMatchFiltersLines(t *testing.T) {
	path := writeLog(t, "job_id=a start\njob_id=b start\njob_id=a done\n")

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Limit: 10, Match: "job_id=a"})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"job_id=a start", "job_id=a done"}) {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
}

func TestTailFromOffsetSkipsPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntw")

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: 0})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"one"}) || result.Offset != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}

	appendLog(t, path, "o\n")
	result, err = logs.Tail(context.Background(), path, logs.Options{Offset: result.Offset})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"two"}) {
		t.Fatalf("expected completed line, got %#v", result.Lines)
	}
}

func TestTailTruncatedFileRestarts(t *testing.T) {
	path := writeLog(t, "x\n")
	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: 100})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"x"}) {
		t.Fatalf("expected re-read from start, got %#v", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.Options{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestTailWaitsForNewLines(t *testing.T) {
	path := writeLog(t, "start\n")
	go func() {
		time.Sleep(200 * time.Millisecond)
		appendLog(t, path, "later\n")
	}()

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: 6, Wait: 5 * time.Second})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"later"}) {
		t.Fatalf("unexpected follow lines: %#v", result.Lines)
	}
}

func TestFollowEmitsUntilCancelled(t *testing.T) {
	path := writeLog(t, "a\nb\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		lines []string
	)
	got := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, 1, "", func(line string) {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, line)
			if line == "c" {
				close(got)
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "c\n")
	select {
	case <-got:
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not emit appended line")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(lines, []string{"b", "c"}) {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}
