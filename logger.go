package bumpgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with allocator-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithArena adds an arena name field to the logger.
func (l *Logger) WithArena(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena", name),
	}
}

// WithSize adds a size field to the logger.
func (l *Logger) WithSize(size int) *Logger {
	return &Logger{
		Logger: l.Logger.With("size", size),
	}
}

// LogGrow logs a chunk-chain growth.
func (l *Logger) LogGrow(ctx context.Context, chunkBytes int64, chunks int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk growth failed",
			"chunk_bytes", chunkBytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "chunk installed",
			"chunk_bytes", chunkBytes,
			"chunks", chunks,
		)
	}
}

// LogReset logs an arena reset.
func (l *Logger) LogReset(ctx context.Context, freedBytes int64, chunks int, keepLast bool) {
	l.DebugContext(ctx, "arena reset",
		"freed_bytes", freedBytes,
		"chunks_released", chunks,
		"keep_last", keepLast,
	)
}

// LogFinalize logs a deferred-destruction walk.
func (l *Logger) LogFinalize(ctx context.Context, records int) {
	if records > 0 {
		l.DebugContext(ctx, "finalizers invoked",
			"records", records,
		)
	}
}

// LogPoolTrim logs a background pool trim cycle.
func (l *Logger) LogPoolTrim(ctx context.Context, trimmed int, freedBytes int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "pool trim interrupted",
			"trimmed", trimmed,
			"error", err,
		)
	} else if trimmed > 0 {
		l.DebugContext(ctx, "pool trimmed",
			"trimmed", trimmed,
			"freed_bytes", freedBytes,
		)
	}
}
