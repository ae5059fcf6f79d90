package logging

import (
	"context"
	"io"
	"log/slog"
	"sort"
)

// ConsoleLogger writes structured records to any writer
type ConsoleLogger struct {
	logger *slog.Logger
	closer io.Closer
}

// NewConsoleLogger creates a logger writing to w in the given format
func NewConsoleLogger(w io.Writer, format Format, level Level) *ConsoleLogger {
	return &ConsoleLogger{logger: slog.New(newHandler(w, format, level))}
}

func newHandler(w io.Writer, format Format, level Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level.slog()}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Debug logs a debug message
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.logger.LogAttrs(ctx, slog.LevelDebug, msg, attrs(nil, fields)...)
}

// Info logs an info message
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs(nil, fields)...)
}

// Warn logs a warning message
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs(nil, fields)...)
}

// Error logs an error message
func (l *ConsoleLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.logger.LogAttrs(ctx, slog.LevelError, msg, attrs(err, fields)...)
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	args := make([]any, 0, len(fields))
	for _, a := range attrs(nil, fields) {
		args = append(args, a)
	}
	return &ConsoleLogger{logger: l.logger.With(args...), closer: l.closer}
}

// Close closes the underlying writer when the logger owns it
func (l *ConsoleLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// attrs converts fields to attributes in key order so output is stable
func attrs(err error, fields Fields) []slog.Attr {
	out := make([]slog.Attr, 0, len(fields)+1)
	if err != nil {
		out = append(out, slog.String("error", err.Error()))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
