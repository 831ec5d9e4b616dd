package logging

import (
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so callers only import this package.
type Attr = slog.Attr

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error renders err under the "error" key.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs into the variadic form slog.Logger methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger yields
// a discarding one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const defaultErrorHint = "check logs for details"

// eventHints maps event types to the next step an operator should take.
var eventHints = map[string]string{
	"tool_not_found":      "install FFmpeg or set tools.bundled_dirs, then run hdrconv doctor",
	"tool_missing":        "install FFmpeg or set tools.bundled_dirs, then run hdrconv doctor",
	"prober_missing":      "install ffprobe for percentage progress",
	"invalid_input":       "check the input path and that its extension is supported",
	"encoder_error":       "read the ffmpeg output in the error detail; hdrconv doctor checks for libx265",
	"output_missing":      "check free space and write access on the output directory",
	"cleanup_failed":      "remove the partial output file by hand",
	"upload_dir_error":    "check that paths.upload_dir exists and is writable",
	"upload_write_error":  "check free space on paths.upload_dir",
	"history_unavailable": "delete history.db in paths.state_dir to start a fresh history",
	"preflight_failed":    "run hdrconv doctor",
	"shutdown_timeout":    "raise tools.terminate_grace_seconds or delete leftover _HDR files",
}

// WarnWithContext logs a warning carrying event_type and error_hint fields.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Warn(msg, Args(withEventFields(attrs, eventType)...)...)
}

// ErrorWithContext logs an error carrying event_type and error_hint fields.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Error(msg, Args(withEventFields(attrs, eventType)...)...)
}

func withEventFields(attrs []Attr, eventType string) []Attr {
	if !hasAttr(attrs, FieldEventType) {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasAttr(attrs, FieldErrorHint) {
		hint, ok := eventHints[eventType]
		if !ok {
			hint = defaultErrorHint
		}
		attrs = append(attrs, String(FieldErrorHint, hint))
	}
	return attrs
}

func hasAttr(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}
