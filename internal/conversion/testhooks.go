package conversion

import (
	"context"
	"os/exec"
	"time"
)

// SetCommandContextForTests overrides how the encoder process is created.
func SetCommandContextForTests(fn func(context.Context, string, ...string) *exec.Cmd) func() {
	previous := commandContext
	commandContext = fn
	return func() {
		commandContext = previous
	}
}

// SetProbeForTests overrides the default duration prober.
func SetProbeForTests(fn func(context.Context, string, string, time.Duration) (float64, bool)) func() {
	previous := probeDuration
	probeDuration = fn
	return func() {
		probeDuration = previous
	}
}
