// Package logger provides structured logging for graphite.
//
// It builds log/slog handlers (JSON or text) whose attributes pass
// through a redaction step before they are written, so session tokens,
// cookies and secrets never reach the log in clear.
//
// Most components take a plain *slog.Logger. The Logger interface and
// the package-level helpers exist for code that wants the default logger
// or a logger carried in a context.
package logger
