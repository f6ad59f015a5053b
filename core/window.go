package core

import (
	"context"
	"fmt"

	"pkt.systems/splix/schema"
)

// Window is an ordered collection of panes with one active pane.
type Window struct {
	id     schema.WindowID
	panes  []*Pane
	active int
}

func newWindow(ctx context.Context, id schema.WindowID, spawn paneSpawner) (*Window, error) {
	w := &Window{id: id}
	if _, err := w.addPane(ctx, spawn); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) addPane(ctx context.Context, spawn paneSpawner) (*Pane, error) {
	p, err := spawn(ctx, schema.NewPaneID(w.id, len(w.panes)))
	if err != nil {
		return nil, err
	}
	w.panes = append(w.panes, p)
	return p, nil
}

// ID returns the window id.
func (w *Window) ID() schema.WindowID { return w.id }

// Panes returns the panes in creation order.
func (w *Window) Panes() []*Pane { return w.panes }

// Pane returns the pane at index i.
func (w *Window) Pane(i int) *Pane { return w.panes[i] }

// ActivePane returns the pane receiving keystrokes.
func (w *Window) ActivePane() *Pane { return w.panes[w.active] }

// Select makes pane i active.
func (w *Window) Select(i int) error {
	if i < 0 || i >= len(w.panes) {
		return fmt.Errorf("select pane %d in window %s: %w", i, w.id, schema.ErrIndexOutOfRange)
	}
	w.active = i
	return nil
}

// UpdatePane routes u to the pane addressed by id. The id's index must
// name an existing pane.
func (w *Window) UpdatePane(id schema.PaneID, u schema.GridUpdate) {
	w.panes[id.Index()].Update(u)
}
