// Package config loads, normalizes, and validates Scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SCRIBE_SEARCH_API_KEY. The Config type centralizes every knob the daemon and
// CLI need, so discovery strategies and the extraction engine receive their
// settings explicitly rather than reading ambient globals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
