// Package log wraps log/slog with a component-scoped logger and the field
// names shared by kasa's packages.
package log

import (
	"io"
	"log/slog"
	"strings"
)

// Logger is a slog.Logger that carries the name of the component it logs for.
type Logger struct {
	*slog.Logger
	component string
}

// New returns a logger writing through h. Every record carries the component.
func New(h slog.Handler, component string) *Logger {
	return &Logger{
		Logger:    slog.New(h).With(FieldComponent, component),
		component: component,
	}
}

// For derives a component logger from the process default logger.
func For(component string) *Logger {
	return &Logger{
		Logger:    slog.Default().With(FieldComponent, component),
		component: component,
	}
}

// NewHandler returns the text handler used by every kasa binary.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// ParseLevel maps debug/info/warn/error to a slog level. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// With returns a logger with additional attributes and the same component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
