package deps

import (
	"errors"
	"fmt"
	"strings"
)

// Requirement names an external tool and whether conversions can run
// without it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the result of checking one Requirement. Command holds the
// resolved path when Available, otherwise the configured value.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// DefaultRequirements lists the tools a conversion needs. ffprobe only
// drives the progress percentage, so it is optional.
func DefaultRequirements(encoder, prober string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: encoder, Description: "Encodes the HLG output"},
		{Name: "FFprobe", Command: prober, Description: "Reads source duration for progress", Optional: true},
	}
}

// Check resolves every requirement through the locator.
func (l *Locator) Check(reqs ...Requirement) []Status {
	out := make([]Status, len(reqs))
	for i, req := range reqs {
		out[i] = l.check(req)
	}
	return out
}

func (l *Locator) check(req Requirement) Status {
	st := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if st.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := l.Locate(st.Command)
	switch {
	case err == nil:
		st.Command, st.Available = path, true
	case errors.Is(err, ErrToolNotFound):
		st.Detail = fmt.Sprintf("binary %q not found", st.Command)
	default:
		st.Detail = err.Error()
	}
	return st
}
