// Package logging provides structured logging for squadron.
//
// This package wraps Go's log/slog to emit JSON-formatted log lines. Every
// component of the coordinator receives a [Logger] by injection and derives
// child loggers that carry the identifiers relevant to the operation:
//
//	logger := base.WithComponent("claims").WithTask("build-step-3")
//	logger.Info("claim granted", "owner", "worker-1")
//
// # Output
//
// When [Options.File] is set, logs are written to that file through a
// lumberjack rotating writer bounded by [Options.MaxSizeMB] and
// [Options.MaxBackups]. Otherwise logs go to stderr.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Testing
//
// Use [NopLogger] to discard output in tests.
package logging
