// Package ffprobe wraps the ffprobe executable.
//
// ProbeDuration answers the single question a conversion needs (how long is
// the source) and tolerates every failure by reporting no duration. Inspect
// and VerifyHDR decode ffprobe's JSON output for the doctor and verify
// commands.
package ffprobe
