package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// Options controls a single Tail read.
type Options struct {
	// Offset is the byte position to resume from. Negative reads the last
	// Limit lines instead.
	Offset int64
	Limit  int
	// Match keeps only lines containing this substring.
	Match string
	// Wait bounds how long to poll when no new lines are available.
	Wait time.Duration
}

// Result holds matched lines and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path. A missing file yields an empty result once Wait
// has elapsed.
func Tail(ctx context.Context, path string, opts Options) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("stat log file: %w", err)
		}
		if opts.Wait <= 0 {
			return Result{}, nil
		}
		return waitForLines(ctx, path, 0, opts.Match, opts.Wait)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("log path %q is a directory", path)
	}

	var result Result
	if opts.Offset < 0 {
		result, err = readLast(path, opts.Limit, opts.Match)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			offset = 0
		}
		result, err = readFrom(path, offset, opts.Match)
	}
	if err != nil || len(result.Lines) > 0 || opts.Wait <= 0 {
		return result, err
	}
	return waitForLines(ctx, path, result.Offset, opts.Match, opts.Wait)
}

// Follow emits the last n matching lines and then every appended one until
// ctx is done.
func Follow(ctx context.Context, path string, n int, match string, emit func(string)) error {
	result, err := Tail(ctx, path, Options{Offset: -1, Limit: n, Match: match})
	if err != nil {
		return err
	}
	for {
		for _, line := range result.Lines {
			emit(line)
		}
		result, err = Tail(ctx, path, Options{Offset: result.Offset, Match: match, Wait: time.Second})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func readLast(path string, limit int, match string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Result{}, fmt.Errorf("seek log file: %w", err)
		}
		return Result{Offset: offset}, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	offset, err := scanLines(file, match, func(line string) {
		ring[next] = line
		next = (next + 1) % limit
		count = min(count+1, limit)
	})
	if err != nil {
		return Result{}, err
	}

	lines := make([]string, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		lines[i] = ring[(start+i)%limit]
	}
	return Result{Lines: lines, Offset: offset}, nil
}

func readFrom(path string, offset int64, match string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	end, err := scanLines(file, match, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Lines: lines, Offset: end}, nil
}

// scanLines feeds complete, matching lines to fn and returns the offset just
// past the last complete line so a partially written line is re-read later.
func scanLines(file *os.File, match string, fn func(string)) (int64, error) {
	start, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	consumed := start
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		if match == "" || strings.Contains(line, match) {
			fn(line)
		}
	}
}

func waitForLines(ctx context.Context, path string, offset int64, match string, wait time.Duration) (Result, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := Result{Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return result, fmt.Errorf("stat log file: %w", err)
		}
		if err == nil {
			from := result.Offset
			if from > info.Size() {
				from = 0
			}
			next, err := readFrom(path, from, match)
			if err != nil {
				return result, err
			}
			result.Offset = next.Offset
			if len(next.Lines) > 0 {
				result.Lines = next.Lines
				return result, nil
			}
		}
		if time.Now().After(deadline) {
			return result, nil
		}
	}
}
