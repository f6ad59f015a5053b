package core

import (
	"context"
	"fmt"

	"pkt.systems/splix/schema"
)

// Session is an ordered collection of windows with one active window.
type Session struct {
	id      schema.SessionID
	windows []*Window
	active  int
}

func newSession(ctx context.Context, id schema.SessionID, spawn paneSpawner) (*Session, error) {
	s := &Session{id: id}
	if _, err := s.addWindow(ctx, spawn); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) addWindow(ctx context.Context, spawn paneSpawner) (*Window, error) {
	w, err := newWindow(ctx, schema.NewWindowID(s.id, len(s.windows)), spawn)
	if err != nil {
		return nil, err
	}
	s.windows = append(s.windows, w)
	return w, nil
}

// ID returns the session id.
func (s *Session) ID() schema.SessionID { return s.id }

// Windows returns the windows in creation order.
func (s *Session) Windows() []*Window { return s.windows }

// Window returns the window at index i.
func (s *Session) Window(i int) *Window { return s.windows[i] }

// ActiveWindow returns the visible window.
func (s *Session) ActiveWindow() *Window { return s.windows[s.active] }

// Select makes window i active.
func (s *Session) Select(i int) error {
	if i < 0 || i >= len(s.windows) {
		return fmt.Errorf("select window %d in session %s: %w", i, s.id, schema.ErrIndexOutOfRange)
	}
	s.active = i
	return nil
}

// UpdatePane routes u down to the pane addressed by id.
func (s *Session) UpdatePane(id schema.PaneID, u schema.GridUpdate) {
	s.windows[id.Window().Index()].UpdatePane(id, u)
}

// Pane returns the pane addressed by id.
func (s *Session) Pane(id schema.PaneID) *Pane {
	return s.windows[id.Window().Index()].Pane(id.Index())
}
