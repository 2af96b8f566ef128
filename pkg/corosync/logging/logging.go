package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

const redactedPlaceholder = "[redacted]"

// Logger defines the subset of slog functionality used by the bindings.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New returns a Logger backed by the provided slog.Logger. Passing nil binds to
// slog.Default().
func New(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

type holder struct{ Logger }

var current atomic.Pointer[holder]

// Default returns the process-wide logger used by the bindings.
func Default() Logger {
	if h := current.Load(); h != nil {
		return h.Logger
	}
	return New(nil)
}

// SetDefault replaces the process-wide logger. A nil logger restores the
// slog.Default() binding.
func SetDefault(l Logger) {
	if l == nil {
		current.Store(nil)
		return
	}
	current.Store(&holder{Logger: l})
}

// Redacted marks attributes whose value was intentionally left out, such as
// message payloads.
func Redacted(key string) slog.Attr {
	return slog.String(key, redactedPlaceholder)
}

// Placeholder returns the canonical string that represents a redacted value.
func Placeholder() string {
	return redactedPlaceholder
}
