// Package log is a thin facade over log/slog so services carry a component
// name and the daemon picks the level in one place.
package log

import (
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	s *slog.Logger
}

// New builds a text logger on stderr. Unknown level strings fall back to info.
func New(level string) *Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{s: slog.New(h)}
}

// NewWith wraps an existing slog.Logger (used by tests).
func NewWith(s *slog.Logger) *Logger { return &Logger{s: s} }

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{s: l.s.With(slog.String("component", component))}
}

func (l *Logger) Debug(msg string, args ...any) { l.s.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.s.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.s.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.s.Error(msg, args...) }

// ParseLevel maps a config string to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything (test default).
func Discard() *Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(127)})
	return &Logger{s: slog.New(h)}
}
