// Package history persists finished conversions in a SQLite database under
// the state directory.
//
// Both the CLI and the HTTP server append one row per terminal outcome;
// `hdrconv history` and GET /api/history read it back newest first. The
// schema is versioned: a mismatched database must be cleared or deleted.
package history
