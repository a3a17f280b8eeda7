// Package logging assembles structured slog loggers used across showcopier.
//
// It owns the console and JSON handlers, level parsing, and output routing,
// plus helpers that tag lines with a component name and a per-run correlation
// ID. Warnings are expected to carry event_type, error_hint, and impact
// fields; WarnWithContext fills in defaults when callers omit them. NewNop
// provides a discard logger for tests and optional wiring.
package logging
