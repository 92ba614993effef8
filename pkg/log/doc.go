// Package log wraps zerolog with the application-wide logger configuration.
// Diagnostics go to stderr; the CLI's structured stdout output is separate
// and lives in cmd/chacrab.
package log
