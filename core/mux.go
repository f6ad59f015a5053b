package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/splix/internal/eventbus"
	"pkt.systems/splix/internal/logx"
	"pkt.systems/splix/schema"
)

type paneSpawner func(ctx context.Context, id schema.PaneID) (*Pane, error)

// Mux is the multiplexer engine: the session tree plus the dispatch loop
// that is its only mutator.
//
// Tree-changing methods (NewSession, AddWindow, AddPane, Select*) must be
// called before Run starts or from the goroutine running it.
type Mux struct {
	cfg      schema.EngineConfig
	bus      *eventbus.Bus
	terms    TerminalFactory
	renderer Renderer
	log      pslog.Logger

	life context.Context
	stop context.CancelFunc

	sessions []*Session
	active   int
	panes    []*Pane
	live     int
}

// NewMux constructs an engine with no sessions.
func NewMux(cfg schema.EngineConfig, deps MuxDeps) (*Mux, error) {
	normalized, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Terminals == nil {
		return nil, errors.New("terminal factory is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	bus := deps.Bus
	if bus == nil {
		bus = eventbus.New(normalized.EventCapacity, logger)
	}
	life, stop := context.WithCancel(context.Background())
	return &Mux{
		cfg:      normalized,
		bus:      bus,
		terms:    deps.Terminals,
		renderer: deps.Renderer,
		log:      logger,
		life:     life,
		stop:     stop,
	}, nil
}

// Bus returns the event bus the engine consumes.
func (m *Mux) Bus() *eventbus.Bus { return m.bus }

// NewSession creates a session with one window holding one pane.
func (m *Mux) NewSession(ctx context.Context) (*Session, error) {
	id := schema.NewSessionID(len(m.sessions))
	s, err := newSession(ctx, id, m.spawn)
	if err != nil {
		return nil, err
	}
	m.sessions = append(m.sessions, s)
	logx.WithSession(m.log, id).Info("session created")
	return s, nil
}

// AddWindow appends a window with one pane to session id.
func (m *Mux) AddWindow(ctx context.Context, id schema.SessionID) (*Window, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	w, err := s.addWindow(ctx, m.spawn)
	if err != nil {
		return nil, err
	}
	logx.WithWindow(m.log, w.ID()).Info("window created")
	return w, nil
}

// AddPane appends a pane to window id.
func (m *Mux) AddPane(ctx context.Context, id schema.WindowID) (*Pane, error) {
	s, err := m.session(id.Session())
	if err != nil {
		return nil, err
	}
	if id.Index() < 0 || id.Index() >= len(s.windows) {
		return nil, fmt.Errorf("window %s: %w", id, schema.ErrIndexOutOfRange)
	}
	return s.windows[id.Index()].addPane(ctx, m.spawn)
}

func (m *Mux) session(id schema.SessionID) (*Session, error) {
	if id.Index() < 0 || id.Index() >= len(m.sessions) {
		return nil, fmt.Errorf("session %s: %w", id, schema.ErrIndexOutOfRange)
	}
	return m.sessions[id.Index()], nil
}

// Sessions returns the sessions in creation order.
func (m *Mux) Sessions() []*Session { return m.sessions }

// SelectSession makes session i visible.
func (m *Mux) SelectSession(i int) error {
	if i < 0 || i >= len(m.sessions) {
		return fmt.Errorf("select session %d: %w", i, schema.ErrIndexOutOfRange)
	}
	m.active = i
	return nil
}

// Active returns the pane that receives keystrokes.
func (m *Mux) Active() (schema.PaneID, bool) {
	if len(m.sessions) == 0 {
		return schema.PaneID{}, false
	}
	return m.activePane().ID(), true
}

func (m *Mux) activePane() *Pane {
	return m.sessions[m.active].ActiveWindow().ActivePane()
}

// LivePanes reports how many panes have not exited.
func (m *Mux) LivePanes() int { return m.live }

func (m *Mux) spawn(ctx context.Context, id schema.PaneID) (*Pane, error) {
	log := logx.WithPane(m.log, id)
	term, err := m.terms.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	producer, err := m.bus.Producer("pane " + id.String())
	if err != nil {
		_ = term.Close()
		return nil, err
	}
	p := newPane(id, m.cfg.InputCapacity, log)
	go p.bridge(pslog.ContextWithLogger(m.life, log), term, producer)
	m.panes = append(m.panes, p)
	m.live++
	log.Info("pane created")
	return p, nil
}

// Run drains the event bus until every pane has exited, the last producer
// releases the bus, or ctx ends.
func (m *Mux) Run(ctx context.Context) error {
	if len(m.sessions) == 0 {
		return schema.ErrNoSessions
	}
	events := m.bus.Events()
	m.log.Debug("mux dispatch started", "panes", m.live)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				m.log.Debug("mux event bus drained")
				return nil
			}
			finished, err := m.dispatch(ctx, ev)
			if err != nil {
				return err
			}
			if finished {
				m.log.Info("mux all panes exited")
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Mux) dispatch(ctx context.Context, ev schema.Event) (bool, error) {
	switch ev.Type {
	case schema.EventPaneUpdate:
		id := ev.PaneUpdate.Pane
		m.sessions[id.Session().Index()].UpdatePane(id, ev.PaneUpdate.Update)
		return false, m.redraw()
	case schema.EventInput:
		return false, m.routeInput(ctx, ev.Input)
	case schema.EventPaneExited:
		id := ev.PaneExit.Pane
		p := m.sessions[id.Session().Index()].Pane(id)
		if !p.exited {
			p.markExited(ev.PaneExit.Err)
			m.live--
		}
		logx.WithPane(m.log, id).Debug("mux pane exited", "live", m.live)
		return m.live == 0, nil
	default:
		m.log.Debug("mux unknown event", "type", ev.Type)
		return false, nil
	}
}

func (m *Mux) routeInput(ctx context.Context, b byte) error {
	p := m.activePane()
	if p.exited {
		logx.WithPane(m.log, p.id).Debug("mux input dropped", "reason", "pane exited")
		return nil
	}
	err := p.ProcessInput(ctx, b)
	if errors.Is(err, schema.ErrPaneExited) {
		logx.WithPane(m.log, p.id).Debug("mux input dropped", "reason", "bridge stopped")
		return nil
	}
	return err
}

func (m *Mux) redraw() error {
	m.renderer.BeginFrame()
	m.renderer.DrawWindow(m.sessions[m.active].ActiveWindow())
	if err := m.renderer.EndFrame(); err != nil {
		return schema.NewError(schema.ErrorIO, "render", err)
	}
	return nil
}

// Close stops every bridging task and waits for them to release their terminals.
func (m *Mux) Close() error {
	m.stop()
	for _, p := range m.panes {
		<-p.done
	}
	return nil
}
