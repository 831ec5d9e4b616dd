// Package logs reads hdrconv's log file for `hdrconv logs`.
//
// Tail returns the last N lines or everything after a byte offset with bounded
// memory, and Follow polls for appended lines until its context ends. A file
// that shrinks below the saved offset is treated as truncated and re-read from
// the start.
package logs
