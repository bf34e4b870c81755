// Package logging configures slog output for the daemon and CLI.
//
// Two formats are supported: a compact console format for interactive use and
// JSON for log shipping. Attr helpers and field-name constants keep stage logs
// queryable with consistent keys.
package logging
