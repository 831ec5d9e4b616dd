// Package logging assembles structured slog loggers for hdrconv.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag log lines with job and request identifiers. The
// progress sampler keeps per-tick encoder progress out of the logs unless the
// percentage or phase actually moved.
package logging
