package geodb

import (
	"context"
	"log/slog"
	"net/netip"
	"os"

	units "github.com/docker/go-units"
)

// Logger wraps slog.Logger with geodb-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds the database path to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithMode adds the resolved open mode to the logger.
func (l *Logger) WithMode(mode Mode) *Logger {
	return &Logger{
		Logger: l.Logger.With("mode", mode.String()),
	}
}

// LogOpen logs the outcome of opening a database.
func (l *Logger) LogOpen(ctx context.Context, size int, meta Metadata, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "database opened",
		"size", units.HumanSize(float64(size)),
		"database_type", meta.DatabaseType,
		"ip_version", meta.IPVersion,
		"build_time", meta.BuildTime(),
	)
}

// LogClose logs a close.
func (l *Logger) LogClose(ctx context.Context) {
	l.InfoContext(ctx, "database closed")
}

// LogLookup logs a failed lookup. Successful lookups are not logged.
func (l *Logger) LogLookup(ctx context.Context, addr netip.Addr, err error) {
	if err == nil {
		return
	}
	l.WarnContext(ctx, "lookup failed",
		"ip", addr,
		"error", err,
	)
}

// LogIteration logs the end of an iteration.
func (l *Logger) LogIteration(ctx context.Context, network netip.Prefix, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "iteration failed",
			"network", network,
			"networks_seen", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "iteration completed",
			"network", network,
			"networks", count,
		)
	}
}
