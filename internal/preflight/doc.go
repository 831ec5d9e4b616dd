// Package preflight provides readiness checks for the directories, encoder
// build and notification endpoint hdrconv depends on.
//
// The doctor command renders every result; serve runs the same checks at
// startup and logs failures as warnings without refusing to start.
package preflight
