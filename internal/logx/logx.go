package logx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/splix/schema"
)

type contextKey int

const (
	paneKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with a session id.
func WithSession(log pslog.Logger, id schema.SessionID) pslog.Logger {
	return log.With("session", id.String())
}

// WithWindow annotates the logger with a window id.
func WithWindow(log pslog.Logger, id schema.WindowID) pslog.Logger {
	return log.With("window", id.String())
}

// WithPane annotates the logger with a pane id.
func WithPane(log pslog.Logger, id schema.PaneID) pslog.Logger {
	return log.With("pane", id.String())
}

// PaneLogger returns the context logger annotated with the pane id, unless
// the context already carries that pane.
func PaneLogger(ctx context.Context, id schema.PaneID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if current, ok := ctx.Value(paneKey).(schema.PaneID); ok && current == id {
		return log
	}
	return WithPane(log, id)
}

// ContextWithPaneLogger attaches a pane-annotated logger and the pane marker to the context.
func ContextWithPaneLogger(ctx context.Context, log pslog.Logger, id schema.PaneID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, WithPane(log, id))
	return context.WithValue(ctx, paneKey, id)
}

// ApplyLevel sets opts.MinLevel from a level name.
func ApplyLevel(opts *pslog.Options, level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "", "info":
		opts.MinLevel = pslog.InfoLevel
	case "warn", "warning":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}

// ValidLevel reports whether ApplyLevel accepts level.
func ValidLevel(level string) bool {
	var opts pslog.Options
	return ApplyLevel(&opts, level) == nil
}

// NewStructured builds a JSON logger writing to w at the named level.
func NewStructured(w io.Writer, level string) (pslog.Logger, error) {
	opts := pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		VerboseFields: true,
	}
	if err := ApplyLevel(&opts, level); err != nil {
		return nil, err
	}
	return pslog.NewWithOptions(w, opts), nil
}
