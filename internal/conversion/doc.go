// Package conversion turns a standard video into an HLG (Rec.2100) HEVC file
// by supervising an ffmpeg child process.
//
// A Converter validates the request, picks a non-colliding output path,
// probes the source duration, runs the encoder with a fixed HDR profile and
// relays its -progress stream as percentages. Every call ends in a single
// Outcome whose Kind classifies failures for the CLI and HTTP adapters.
//
// Convert blocks until the encoder exits. Cancel may be called from any
// goroutine; the encoder is asked to terminate, killed after a grace period,
// and the partial output is removed.
package conversion
