package imagecache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/imagecache/atlas"
	"github.com/gogpu/imagecache/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for imagecache and its sub-packages.
// By default nothing is logged. Pass nil to restore silent behavior.
//
// Log levels used:
//   - [slog.LevelDebug]: evictions, uploads, bindings handed to the releaser
//   - [slog.LevelInfo]: lifecycle events (atlas layers created, renderer closed)
//   - [slog.LevelWarn]: fallbacks and caller bugs (atlas full, double remove)
//
// Example:
//
//	imagecache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	propagateLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// propagateLogger hands l to the sub-packages.
func propagateLogger(l *slog.Logger) {
	atlas.SetLogger(l)
	gpu.SetLogger(l)
}
