// Package daemon coordinates the long-running `hdrconv serve` process.
//
// It wires configuration, the job store, per-job converters, notifications,
// and the web UI into a single lifecycle with flock-based locking so only one
// server owns the upload directory at a time. Tools are resolved per job, so
// installing FFmpeg while the server runs takes effect on the next upload.
package daemon
