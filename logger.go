package docgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with docgo-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithCollection adds the collection name to every record.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "insert completed", "id", id)
}

// LogReplace logs a replace operation.
func (l *Logger) LogReplace(ctx context.Context, id string, replaced int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "replace failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "replace completed", "id", id, "replaced", replaced)
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, deleted int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed", "deleted", deleted, "error", err)
		return
	}
	l.DebugContext(ctx, "delete completed", "deleted", deleted)
}

// LogQuery logs a narrowing or query-string search.
func (l *Logger) LogQuery(ctx context.Context, kind string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed", "kind", kind, "error", err)
		return
	}
	l.DebugContext(ctx, "query completed", "kind", kind, "results", results)
}

// LogExport logs an export.
func (l *Logger) LogExport(ctx context.Context, written, failed int, err error) {
	switch {
	case failed > 0:
		l.WarnContext(ctx, "export completed with failures", "written", written, "failed", failed)
	case err != nil:
		l.ErrorContext(ctx, "export failed", "written", written, "error", err)
	default:
		l.InfoContext(ctx, "export completed", "written", written)
	}
}

// LogRepair logs a replace journal recovery.
func (l *Logger) LogRepair(ctx context.Context, pending, repaired int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "replace recovery failed", "pending", pending, "repaired", repaired, "error", err)
		return
	}
	if pending > 0 {
		l.InfoContext(ctx, "replace recovery completed", "pending", pending, "repaired", repaired)
	}
}
