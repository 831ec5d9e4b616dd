package history

import (
	"time"

	"hdrconv/internal/conversion"
	"hdrconv/internal/fileutil"
)

// Origin identifies which front end ran the conversion.
type Origin string

const (
	OriginCLI Origin = "cli"
	OriginWeb Origin = "web"
)

// maxDetailBytes bounds the stored failure detail; the encoder's stderr tail
// can be much larger.
const maxDetailBytes = 4096

// Entry is one recorded conversion.
type Entry struct {
	ID            int64             `json:"id"`
	Origin        Origin            `json:"origin"`
	JobID         string            `json:"job_id,omitempty"`
	InputPath     string            `json:"input_path"`
	OutputPath    string            `json:"output_path,omitempty"`
	Status        conversion.Status `json:"status"`
	ErrorKind     conversion.Kind   `json:"error_kind,omitempty"`
	Detail        string            `json:"detail,omitempty"`
	ExitCode      int               `json:"exit_code,omitempty"`
	SourceSeconds float64           `json:"source_seconds,omitempty"`
	OutputBytes   int64             `json:"output_bytes,omitempty"`
	Elapsed       time.Duration     `json:"elapsed"`
	FinishedAt    time.Time         `json:"finished_at"`
}

// FromOutcome builds an entry for a conversion that just finished.
func FromOutcome(origin Origin, outcome conversion.Outcome) Entry {
	entry := Entry{
		Origin:        origin,
		InputPath:     outcome.InputPath,
		OutputPath:    outcome.OutputPath,
		Status:        outcome.Status,
		ErrorKind:     outcome.Kind,
		Detail:        outcome.Detail,
		ExitCode:      outcome.ExitCode,
		SourceSeconds: outcome.SourceSeconds,
		Elapsed:       outcome.Elapsed,
		FinishedAt:    time.Now().UTC(),
	}
	if outcome.Status == conversion.StatusCompleted {
		entry.OutputBytes = fileutil.FileSize(outcome.OutputPath)
	} else {
		entry.OutputPath = ""
	}
	return entry
}

func truncateDetail(detail string) string {
	if len(detail) <= maxDetailBytes {
		return detail
	}
	return detail[len(detail)-maxDetailBytes:]
}
