// Package logging assembles structured slog loggers and formatting helpers used
// across moversync.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so request handlers and scheduled jobs tag
// log lines with correlation ids and triggers. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
