package jobs

import (
	"time"

	"hdrconv/internal/conversion"
)

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether the job has finished.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job is a snapshot of one conversion.
type Job struct {
	ID            string          `json:"id"`
	InputPath     string          `json:"input_path"`
	OutputPath    string          `json:"output_path,omitempty"`
	Status        Status          `json:"status"`
	Percent       float64         `json:"percent"`
	Message       string          `json:"message"`
	ErrorKind     conversion.Kind `json:"error_kind,omitempty"`
	Error         string          `json:"error,omitempty"`
	ExitCode      int             `json:"exit_code,omitempty"`
	SourceSeconds float64         `json:"source_seconds,omitempty"`
	Elapsed       time.Duration   `json:"elapsed,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func statusFor(outcome conversion.Outcome) Status {
	switch outcome.Status {
	case conversion.StatusCompleted:
		return StatusDone
	case conversion.StatusCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}
