// Package logging provides the logging facade used by the corosync bindings.
//
// The Logger interface wraps the subset of log/slog that the bindings need.
// It is small so applications can plug in their own implementation for
// testing or to route binding diagnostics into an existing logger:
//
//	type Logger interface {
//	    Debug(ctx context.Context, msg string, args ...any)
//	    Info(ctx context.Context, msg string, args ...any)
//	    Warn(ctx context.Context, msg string, args ...any)
//	    Error(ctx context.Context, msg string, args ...any)
//	    With(args ...any) Logger
//	}
//
// # Default Logger
//
// The bindings log through Default(), which starts out bound to
// slog.Default(). Replace it once at startup:
//
//	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})
//	logging.SetDefault(logging.New(slog.New(handler)))
//
// # What Gets Logged
//
// The bindings only log conditions that have no error return to travel
// through: callbacks that arrive for a handle that is no longer registered,
// and iteration cursors that failed to release. Both are logged at debug
// level.
//
// # Payloads
//
// Message payloads never appear in log output. Use Redacted to record that a
// payload was present:
//
//	logger.Debug(ctx, "delivered", "group", group, logging.Redacted("payload"))
//	// Logs: payload="[redacted]"
package logging
