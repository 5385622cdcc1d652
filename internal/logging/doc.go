// Package logging builds the slog loggers used across the daemon and CLI.
//
// It maps config values to handler construction (console text for terminals,
// JSON otherwise, with optional file fan-out) and exposes small attr helpers
// so call sites stay terse.
package logging
