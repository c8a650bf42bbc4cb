// Package logging provides structured logging for devtop.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent context attributes. The dashboard owns the terminal, so logs
// always go to a file (or stderr for one-shot commands run with an empty
// log directory) and never interleave with rendered output.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Persistent attributes via WithComponent, WithPID and With
//   - Size-based rotation with optional gzip compression (lumberjack)
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(logging.DefaultDir(), "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	cwdLog := logger.WithComponent("cwd")
//	cwdLog.Debug("lsof unavailable", "error", err)
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"lsof unavailable","component":"cwd","error":"..."}
package logging
