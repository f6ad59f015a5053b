package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/splix/schema"
)

type fakeTerminal struct {
	out    chan []rune
	in     chan byte
	closed chan struct{}
	once   sync.Once

	readPanic  any
	writePanic any
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{
		out:    make(chan []rune, 16),
		in:     make(chan byte, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeTerminal) Read(ctx context.Context) ([]rune, error) {
	if f.readPanic != nil {
		panic(f.readPanic)
	}
	select {
	case r, ok := <-f.out:
		if !ok {
			return nil, nil
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTerminal) Write(ctx context.Context, b byte) error {
	if f.writePanic != nil {
		panic(f.writePanic)
	}
	select {
	case f.in <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTerminal) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type fakeFactory struct {
	mu    sync.Mutex
	terms map[schema.PaneID]*fakeTerminal
	err   error

	readPanic  any
	writePanic any
}

func (f *fakeFactory) Open(_ context.Context, id schema.PaneID) (Terminal, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terms == nil {
		f.terms = make(map[schema.PaneID]*fakeTerminal)
	}
	term := newFakeTerminal()
	term.readPanic = f.readPanic
	term.writePanic = f.writePanic
	f.terms[id] = term
	return term, nil
}

func (f *fakeFactory) term(id schema.PaneID) *fakeTerminal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terms[id]
}

// frameRenderer records the visible pane's grid text once per frame.
type frameRenderer struct {
	frames  chan string
	pending string
	err     error
}

func newFrameRenderer() *frameRenderer {
	return &frameRenderer{frames: make(chan string, 1024)}
}

func (r *frameRenderer) BeginFrame() { r.pending = "" }

func (r *frameRenderer) DrawWindow(w *Window) {
	r.pending = w.ActivePane().Grid().String()
}

func (r *frameRenderer) EndFrame() error {
	if r.err != nil {
		return r.err
	}
	r.frames <- r.pending
	return nil
}

func (r *frameRenderer) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-r.frames:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for frame %q", want)
		}
	}
}

func paneID(session, window, pane int) schema.PaneID {
	return schema.NewPaneID(schema.NewWindowID(schema.NewSessionID(session), window), pane)
}
