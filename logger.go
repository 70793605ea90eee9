package scanout

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine,
// including a running frame loop.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for scanout and all its sub-packages.
// By default, scanout produces no log output. Call SetLogger to enable
// logging. Pass nil to disable logging (restore default silent behavior).
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically.
//
// Log levels used by scanout:
//   - [slog.LevelDebug]: per-frame diagnostics (commit timing, fence handles)
//   - [slog.LevelInfo]: lifecycle events (pipe probed, presenter initialized)
//   - [slog.LevelWarn]: non-fatal issues (best-effort cleanup errors)
//
// Example:
//
//	// Enable info-level logging to stderr:
//	scanout.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full per-frame diagnostics:
//	scanout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by scanout.
// Sub-packages (kms/, render/, content/) call this to share the same
// logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
