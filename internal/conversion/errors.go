package conversion

import (
	"errors"
	"fmt"
	"strings"

	"hdrconv/internal/deps"
)

// Kind classifies why a conversion did not complete.
type Kind string

const (
	KindNone          Kind = ""
	KindToolNotFound  Kind = "tool_not_found"
	KindInvalidInput  Kind = "invalid_input"
	KindEncoderError  Kind = "encoder_error"
	KindOutputMissing Kind = "output_missing"
	KindCancelled     Kind = "cancelled"
)

var (
	ErrToolNotFound  = deps.ErrToolNotFound
	ErrInvalidInput  = errors.New("invalid input")
	ErrEncoder       = errors.New("encoder error")
	ErrOutputMissing = errors.New("output missing")
	ErrCancelled     = errors.New("conversion cancelled")
)

// Marker returns the sentinel error matching k.
func (k Kind) Marker() error {
	switch k {
	case KindToolNotFound:
		return ErrToolNotFound
	case KindInvalidInput:
		return ErrInvalidInput
	case KindEncoderError:
		return ErrEncoder
	case KindOutputMissing:
		return ErrOutputMissing
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// KindOf maps an error produced by this package or the locator to its Kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrToolNotFound):
		return KindToolNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrOutputMissing):
		return KindOutputMissing
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	default:
		return KindEncoderError
	}
}

// Status is the terminal state of a conversion.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

func wrap(marker error, operation, message string, err error) error {
	detail := strings.TrimSpace(operation)
	if message = strings.TrimSpace(message); message != "" {
		if detail != "" {
			detail += ": "
		}
		detail += message
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
