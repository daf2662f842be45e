// Package logging assembles structured slog loggers and formatting helpers used
// across featuregen.
//
// Console output goes through tint with colour enabled only when the target is
// a terminal; JSON output keeps the compact ts/level/msg keys. Context helpers
// tag log lines with the run ID, pipeline stage, image number, and template so
// concurrent image analyses can be told apart. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
