package core

import (
	"pkt.systems/pslog"
	"pkt.systems/splix/internal/eventbus"
)

// MuxDeps captures the collaborators of the multiplexer engine.
type MuxDeps struct {
	Terminals TerminalFactory
	Renderer  Renderer
	// Bus is created from the engine config when nil.
	Bus    *eventbus.Bus
	Logger pslog.Logger
}
