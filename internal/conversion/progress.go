package conversion

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Messages reported through ProgressFunc.
const (
	MessageStarting   = "Starting conversion..."
	MessageFinalizing = "Finalizing..."
	MessageDone       = "Done!"
)

// indeterminatePercent is reported when the source duration is unknown.
const indeterminatePercent = 50

// ProgressFunc receives progress updates. It is called synchronously from the
// goroutine running Convert; percent is always within [0, 100].
type ProgressFunc func(percent float64, message string)

// ProgressEvent is a single progress update.
type ProgressEvent struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// ChannelRelay adapts a buffered channel to a ProgressFunc. When the channel
// is full the oldest queued event is discarded so the newest one, including
// the terminal event, always gets through. Events keep their order.
func ChannelRelay(ch chan ProgressEvent) ProgressFunc {
	return func(percent float64, message string) {
		event := ProgressEvent{Percent: percent, Message: message}
		for {
			select {
			case ch <- event:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

// ParseTime converts an ffmpeg "HH:MM:SS.frac" timestamp to seconds. A
// leading minus sign is accepted. "N/A" and malformed values report false.
func ParseTime(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return 0, false
	}
	sign := 1.0
	if strings.HasPrefix(value, "-") {
		sign = -1
		value = value[1:]
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return sign * (float64(hours)*3600 + float64(minutes)*60 + seconds), true
}

func clampPercent(percent float64) float64 {
	switch {
	case math.IsNaN(percent):
		return 0
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

// progressUpdate is a parsed progress line.
type progressUpdate struct {
	ProgressEvent
	phase string
	// seconds is the encoded media time; -1 when the line carried none.
	seconds float64
}

// progressParser turns ffmpeg -progress lines into updates.
type progressParser struct {
	duration float64
}

func (p progressParser) parse(line string) (progressUpdate, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return progressUpdate{}, false
	}
	switch key {
	case "out_time":
		seconds, ok := ParseTime(value)
		if !ok {
			return progressUpdate{}, false
		}
		seconds = max(seconds, 0)
		update := progressUpdate{phase: "converting", seconds: seconds}
		if p.duration > 0 {
			update.Percent = clampPercent(seconds / p.duration * 100)
			update.Message = fmt.Sprintf("Converting... %.1f%%", update.Percent)
		} else {
			update.Percent = indeterminatePercent
			update.Message = fmt.Sprintf("Converting... %.1fs", seconds)
		}
		return update, true
	case "progress":
		if strings.TrimSpace(value) == "end" {
			return progressUpdate{
				ProgressEvent: ProgressEvent{Percent: 100, Message: MessageFinalizing},
				phase:         "finalizing",
				seconds:       -1,
			}, true
		}
	}
	return progressUpdate{}, false
}
