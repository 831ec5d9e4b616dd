// Package config loads, normalizes, and validates hdrconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HDRCONV_TOOLS_DIR and HDRCONV_NTFY_TOPIC. The Config type centralizes every
// knob the CLI and HTTP front end need, including the ordered list of bundled
// tool directories the media locator searches.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
