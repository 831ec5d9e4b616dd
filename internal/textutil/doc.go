// Package textutil provides small text helpers: filename sanitization for
// uploaded files and display labels for machine identifiers.
package textutil
