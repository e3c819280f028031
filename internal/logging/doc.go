// Package logging builds the slog loggers used across quizsync.
//
// Console output uses a compact single-line handler (timestamp, level,
// component prefix, key=value attrs); JSON output is available for log
// shipping. Helpers create component-scoped loggers and derive run/stage/
// workbook fields from context so every pipeline log line can be correlated
// with its sync run.
package logging
