package core

import (
	"context"
	"errors"
	"runtime/debug"

	"pkt.systems/pslog"
	"pkt.systems/splix/internal/eventbus"
	"pkt.systems/splix/schema"
)

// Pane owns one terminal and the grid fed by its output.
//
// A bridging goroutine pumps terminal output onto the event bus and
// forwards queued keystrokes to the terminal. The grid itself is only
// touched by the dispatch loop through Update.
type Pane struct {
	id    schema.PaneID
	grid  Grid
	input chan byte
	done  chan struct{}
	log   pslog.Logger

	// Owned by the dispatch loop.
	exited  bool
	exitErr error
}

type readResult struct {
	runes []rune
	err   error
}

func newPane(id schema.PaneID, inputCapacity int, logger pslog.Logger) *Pane {
	if inputCapacity <= 0 {
		inputCapacity = schema.DefaultInputCapacity
	}
	return &Pane{
		id:    id,
		input: make(chan byte, inputCapacity),
		done:  make(chan struct{}),
		log:   logger,
	}
}

// ID returns the pane id.
func (p *Pane) ID() schema.PaneID { return p.id }

// Grid returns the pane's grid.
func (p *Pane) Grid() *Grid { return &p.grid }

// Update applies one grid update. Only the dispatch loop calls it.
func (p *Pane) Update(u schema.GridUpdate) {
	p.grid.Apply(u)
}

// Exited reports whether the dispatch loop has seen this pane's exit event.
func (p *Pane) Exited() bool { return p.exited }

// ExitErr returns the error that ended the bridging task, if any.
func (p *Pane) ExitErr() error { return p.exitErr }

// Done is closed when the bridging task has stopped.
func (p *Pane) Done() <-chan struct{} { return p.done }

// ProcessInput queues one keystroke for the terminal, blocking while the
// pane's input queue is full.
func (p *Pane) ProcessInput(ctx context.Context, b byte) error {
	select {
	case <-p.done:
		return schema.ErrPaneExited
	default:
	}
	select {
	case p.input <- b:
		return nil
	case <-p.done:
		return schema.ErrPaneExited
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pane) markExited(err error) {
	p.exited = true
	p.exitErr = err
}

// bridge runs until the terminal reaches end-of-stream, fails or ctx ends.
// It closes the terminal and releases producer before returning.
func (p *Pane) bridge(ctx context.Context, term Terminal, producer *eventbus.Producer) {
	defer close(p.done)
	defer producer.Close()

	bridgeCtx, cancel := context.WithCancel(ctx)
	reads := make(chan readResult)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		defer func() {
			if r := recover(); r != nil {
				err := p.recovered("pane read", r)
				select {
				case reads <- readResult{err: err}:
				case <-bridgeCtx.Done():
				}
			}
		}()
		p.readPump(bridgeCtx, term, reads)
	}()

	exitErr := p.guardedLoop(bridgeCtx, term, producer, reads)

	cancel()
	<-pumpDone
	if err := term.Close(); err != nil {
		p.log.Debug("pane terminal close failed", "err", err)
	}

	if ctx.Err() != nil {
		p.log.Debug("pane bridge canceled")
		return
	}
	if exitErr != nil {
		p.log.Warn("pane bridge stopped", "err", exitErr)
	} else {
		p.log.Info("pane shell exited")
	}
	if err := p.send(ctx, producer, schema.PaneExited(p.id, exitErr), p.discardInput); err != nil {
		p.log.Debug("pane exit not delivered", "err", err)
	}
}

// guardedLoop turns a panic in the loop into the pane's exit error so a
// faulty terminal ends only its own pane.
func (p *Pane) guardedLoop(ctx context.Context, term Terminal, producer *eventbus.Producer, reads <-chan readResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = p.recovered("pane bridge", r)
		}
	}()
	return p.loop(ctx, term, producer, reads)
}

func (p *Pane) recovered(op string, v any) error {
	p.log.Error("pane task panicked", "op", op, "panic", v, "stack", string(debug.Stack()))
	return schema.Recovered(op, v)
}

func (p *Pane) loop(ctx context.Context, term Terminal, producer *eventbus.Producer, reads <-chan readResult) error {
	write := func(b byte) error { return term.Write(ctx, b) }
	for {
		select {
		case b := <-p.input:
			if err := write(b); err != nil {
				return err
			}
		case res := <-reads:
			if res.err != nil {
				return res.err
			}
			if len(res.runes) == 0 {
				return nil
			}
			for _, r := range res.runes {
				ev := schema.PaneUpdate(p.id, schema.GridUpdateFor(r))
				if err := p.send(ctx, producer, ev, write); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// send publishes ev and keeps servicing keystrokes while the bus is full,
// so the dispatch loop can never wait on this pane while it waits on the bus.
func (p *Pane) send(ctx context.Context, producer *eventbus.Producer, ev schema.Event, onInput func(byte) error) error {
	sink := producer.Sink()
	if sink == nil {
		return schema.NewError(schema.ErrorChannel, "publish", schema.ErrBusClosed)
	}
	for {
		select {
		case sink <- ev:
			return nil
		case b := <-p.input:
			if err := onInput(b); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pane) discardInput(b byte) error {
	p.log.Trace("pane input discarded", "byte", b)
	return nil
}

func (p *Pane) readPump(ctx context.Context, term Terminal, reads chan<- readResult) {
	for {
		runes, err := term.Read(ctx)
		if err != nil && errors.Is(err, ctx.Err()) {
			return
		}
		select {
		case reads <- readResult{runes: runes, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil || len(runes) == 0 {
			return
		}
	}
}
