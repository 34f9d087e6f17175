package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or a logger for the default
// handler when none was stored.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// LogRequest records a completed HTTP request. 4xx responses log at warn and
// 5xx at error.
func (l *Logger) LogRequest(ctx context.Context, method, path, clientIP string, status int, durationMs int64) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithRequest(method, path, clientIP).
		WithResponse(status, durationMs)
	l.Log(ctx, level, "Request completed", fields.Args()...)
}
