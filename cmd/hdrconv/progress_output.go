package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"hdrconv/internal/conversion"
	"hdrconv/internal/logging"
)

// progressEventBuffer bounds queued progress events; the relay drops the
// oldest when rendering falls behind.
const progressEventBuffer = 32

// progressReporter renders conversion progress for one file: a live bar on
// terminals, sampled plain lines otherwise. Rendering runs on its own
// goroutine fed by a conversion.ChannelRelay.
type progressReporter struct {
	out     io.Writer
	label   string
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler

	events  chan conversion.ProgressEvent
	relay   conversion.ProgressFunc
	drained chan struct{}

	lastMessage string
}

func newProgressReporter(out io.Writer, label string, interactive bool) *progressReporter {
	r := &progressReporter{
		out:     out,
		label:   label,
		sampler: logging.NewProgressSampler(10),
		events:  make(chan conversion.ProgressEvent, progressEventBuffer),
		drained: make(chan struct{}),
	}
	r.relay = conversion.ChannelRelay(r.events)
	if interactive {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]█[reset]",
				SaucerHead:    "[green]█[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	go r.drain()
	return r
}

func (r *progressReporter) drain() {
	defer close(r.drained)
	for event := range r.events {
		r.render(event.Percent, event.Message)
	}
}

func (r *progressReporter) render(percent float64, message string) {
	if r.bar != nil {
		if message != r.lastMessage {
			r.bar.Describe(r.describe(message))
		}
		_ = r.bar.Set(int(percent))
		r.lastMessage = message
		return
	}

	phase := "converting"
	if message == conversion.MessageFinalizing || message == conversion.MessageDone {
		phase = message
	}
	if message == conversion.MessageStarting || r.sampler.ShouldLog(percent, phase) {
		fmt.Fprintf(r.out, "  %5.1f%%  %s\n", percent, message)
	}
	r.lastMessage = message
}

func (r *progressReporter) describe(message string) string {
	if strings.HasPrefix(message, "Converting... ") && strings.HasSuffix(message, "%") {
		return r.label
	}
	return fmt.Sprintf("%s · %s", r.label, message)
}

// finish waits for queued events, closes the bar and prints the file's
// result line. The relay must not be called afterwards.
func (r *progressReporter) finish(outcome conversion.Outcome, colorize bool) {
	close(r.events)
	<-r.drained

	if r.bar != nil {
		if outcome.Status == conversion.StatusCompleted {
			_ = r.bar.Finish()
		} else {
			_ = r.bar.Exit()
		}
		fmt.Fprintln(r.out)
	}

	switch outcome.Status {
	case conversion.StatusCompleted:
		fmt.Fprintln(r.out, renderStatusLine("Done", statusOK, outcome.OutputPath, colorize))
	case conversion.StatusCancelled:
		fmt.Fprintln(r.out, renderStatusLine("Cancelled", statusWarn, "partial output removed", colorize))
	default:
		fmt.Fprintln(r.out, renderStatusLine(outcomeLabel(outcome), statusError, firstLine(outcome.Detail), colorize))
		if rest := remainingLines(outcome.Detail); rest != "" {
			fmt.Fprintln(r.out, rest)
		}
	}
}

func firstLine(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		return value[:idx]
	}
	return value
}

func remainingLines(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		return strings.TrimSpace(value[idx+1:])
	}
	return ""
}
