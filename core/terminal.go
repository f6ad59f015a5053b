package core

import (
	"context"

	"pkt.systems/splix/schema"
)

// Terminal is the byte-level connection to one shell.
type Terminal interface {
	// Read blocks until output is available and returns it decoded.
	// An empty result with a nil error signals end-of-stream.
	Read(ctx context.Context) ([]rune, error)
	// Write forwards one keystroke byte to the shell.
	Write(ctx context.Context, b byte) error
	Close() error
}

// TerminalFactory opens the terminal backing a new pane.
type TerminalFactory interface {
	Open(ctx context.Context, pane schema.PaneID) (Terminal, error)
}

// TerminalFactoryFunc adapts a function to TerminalFactory.
type TerminalFactoryFunc func(ctx context.Context, pane schema.PaneID) (Terminal, error)

// Open calls f.
func (f TerminalFactoryFunc) Open(ctx context.Context, pane schema.PaneID) (Terminal, error) {
	return f(ctx, pane)
}
