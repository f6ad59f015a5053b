package schema

// GridUpdateKind identifies a grid mutation.
type GridUpdateKind uint8

const (
	// GridAppendChar appends a character to the last line.
	GridAppendChar GridUpdateKind = iota + 1
	// GridNewLine starts a new empty line.
	GridNewLine
)

func (k GridUpdateKind) String() string {
	switch k {
	case GridAppendChar:
		return "append_char"
	case GridNewLine:
		return "new_line"
	default:
		return "unknown"
	}
}

// GridUpdate is one incremental mutation of a pane grid.
type GridUpdate struct {
	Kind GridUpdateKind
	Char rune
}

// AppendChar returns a GridUpdate that appends r.
func AppendChar(r rune) GridUpdate {
	return GridUpdate{Kind: GridAppendChar, Char: r}
}

// NewLine returns a GridUpdate that starts a new line.
func NewLine() GridUpdate {
	return GridUpdate{Kind: GridNewLine}
}

// GridUpdateFor translates one decoded character from a shell into a grid update.
func GridUpdateFor(r rune) GridUpdate {
	if r == '\n' {
		return NewLine()
	}
	return AppendChar(r)
}

// PaneUpdateEvent addresses a grid update to a pane.
type PaneUpdateEvent struct {
	Pane   PaneID
	Update GridUpdate
}

// PaneExitEvent reports that a pane's shell stopped producing output.
// Err is nil on a clean end-of-stream.
type PaneExitEvent struct {
	Pane PaneID
	Err  error
}

// EventType identifies the event payload.
type EventType string

const (
	// EventPaneUpdate carries a grid update for one pane.
	EventPaneUpdate EventType = "pane_update"
	// EventInput carries one keystroke byte.
	EventInput EventType = "input"
	// EventPaneExited reports the end of a pane's bridging task.
	EventPaneExited EventType = "pane_exited"
)

// Event is the unit carried by the engine's event bus.
type Event struct {
	Type       EventType
	PaneUpdate PaneUpdateEvent
	Input      byte
	PaneExit   PaneExitEvent
}

// PaneUpdate wraps a pane update into an Event.
func PaneUpdate(pane PaneID, update GridUpdate) Event {
	return Event{Type: EventPaneUpdate, PaneUpdate: PaneUpdateEvent{Pane: pane, Update: update}}
}

// Input wraps a keystroke byte into an Event.
func Input(b byte) Event {
	return Event{Type: EventInput, Input: b}
}

// PaneExited wraps a pane exit into an Event.
func PaneExited(pane PaneID, err error) Event {
	return Event{Type: EventPaneExited, PaneExit: PaneExitEvent{Pane: pane, Err: err}}
}
