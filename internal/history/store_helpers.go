package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"hdrconv/internal/conversion"
)

// timeLayout is fixed width so finished_at sorts and compares lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const entryColumns = "id, origin, job_id, input_path, output_path, status, error_kind, detail, exit_code, source_seconds, output_bytes, elapsed_ms, finished_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		id            int64
		origin        string
		jobID         sql.NullString
		inputPath     string
		outputPath    sql.NullString
		status        string
		errorKind     sql.NullString
		detail        sql.NullString
		exitCode      sql.NullInt64
		sourceSeconds sql.NullFloat64
		outputBytes   sql.NullInt64
		elapsedMillis sql.NullInt64
		finishedRaw   string
	)
	if err := scanner.Scan(
		&id,
		&origin,
		&jobID,
		&inputPath,
		&outputPath,
		&status,
		&errorKind,
		&detail,
		&exitCode,
		&sourceSeconds,
		&outputBytes,
		&elapsedMillis,
		&finishedRaw,
	); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:            id,
		Origin:        Origin(origin),
		JobID:         jobID.String,
		InputPath:     inputPath,
		OutputPath:    outputPath.String,
		Status:        conversion.Status(status),
		ErrorKind:     conversion.Kind(errorKind.String),
		Detail:        detail.String,
		ExitCode:      int(exitCode.Int64),
		SourceSeconds: sourceSeconds.Float64,
		OutputBytes:   outputBytes.Int64,
		Elapsed:       time.Duration(elapsedMillis.Int64) * time.Millisecond,
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		entry.FinishedAt = finished
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
