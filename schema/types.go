package schema

import "strconv"

// SessionID identifies a session. Sessions are numbered in creation order starting at 0.
type SessionID struct {
	index int
}

// NewSessionID returns the id of the session at index.
func NewSessionID(index int) SessionID {
	return SessionID{index: index}
}

// Index returns the session's position among all sessions.
func (id SessionID) Index() int { return id.index }

func (id SessionID) String() string {
	return strconv.Itoa(id.index)
}

// WindowID identifies a window within its session.
type WindowID struct {
	session SessionID
	index   int
}

// NewWindowID returns the id of the window at index inside session.
func NewWindowID(session SessionID, index int) WindowID {
	return WindowID{session: session, index: index}
}

// Session returns the owning session id.
func (id WindowID) Session() SessionID { return id.session }

// Index returns the window's position within its session.
func (id WindowID) Index() int { return id.index }

func (id WindowID) String() string {
	return id.session.String() + ":" + strconv.Itoa(id.index)
}

// PaneID identifies a pane within its window.
type PaneID struct {
	window WindowID
	index  int
}

// NewPaneID returns the id of the pane at index inside window.
func NewPaneID(window WindowID, index int) PaneID {
	return PaneID{window: window, index: index}
}

// Window returns the owning window id.
func (id PaneID) Window() WindowID { return id.window }

// Session returns the session that owns the pane's window.
func (id PaneID) Session() SessionID { return id.window.session }

// Index returns the pane's position within its window.
func (id PaneID) Index() int { return id.index }

func (id PaneID) String() string {
	return id.window.String() + ":" + strconv.Itoa(id.index)
}
