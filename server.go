package splix

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"
	"pkt.systems/splix/core"
	"pkt.systems/splix/internal/eventbus"
	"pkt.systems/splix/internal/input"
	"pkt.systems/splix/internal/logserver"
	"pkt.systems/splix/internal/rpc"
	"pkt.systems/splix/schema"
)

// Server composes the multiplexer with its optional socket services.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Engine    schema.EngineConfig
	LogServer logserver.Config
	RPC       rpc.Config
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	Terminals core.TerminalFactory
	Renderer  core.Renderer
	// Keys is the keystroke stream; nil runs without keyboard input.
	Keys input.Source
	// Hub backs the log server and is required with WithLogServer.
	Hub *logserver.Hub
	// API defaults to rpc.Service.
	API    rpc.APIServer
	Logger pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableLogServer bool
	enableRPC       bool
}

// WithLogServer enables the log forwarding socket.
func WithLogServer() ServerOption {
	return func(o *serverOptions) { o.enableLogServer = true }
}

// WithRPC enables the gRPC socket.
func WithRPC() ServerOption {
	return func(o *serverOptions) { o.enableRPC = true }
}

// New constructs a composable splix server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	mux, err := core.NewMux(cfg.Engine, core.MuxDeps{
		Terminals: deps.Terminals,
		Renderer:  deps.Renderer,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	var logSrv *logserver.Server
	if options.enableLogServer {
		if deps.Hub == nil {
			return nil, errors.New("log hub dependency is required")
		}
		logSrv = logserver.NewServer(cfg.LogServer, deps.Hub)
	}
	var rpcSrv *rpc.Server
	if options.enableRPC {
		api := deps.API
		if api == nil {
			api = rpc.Service{}
		}
		rpcSrv = rpc.NewServer(cfg.RPC, api)
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		mux:     mux,
		keys:    deps.Keys,
		logSrv:  logSrv,
		rpcSrv:  rpcSrv,
		logger:  logger,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	mux     *core.Mux
	keys    input.Source
	logSrv  *logserver.Server
	rpcSrv  *rpc.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	started bool
}

// Start creates the first session and launches the dispatch loop, the
// keystroke reader and the enabled socket services. A failure to spawn the
// first shell is returned before anything runs.
func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	runCtx, cancel := context.WithCancel(pslog.ContextWithLogger(ctx, s.logger))

	if _, err := s.mux.NewSession(runCtx); err != nil {
		cancel()
		_ = s.mux.Close()
		return err
	}
	var keys *eventbus.Producer
	if s.keys != nil {
		producer, err := s.mux.Bus().Producer("keyboard")
		if err != nil {
			cancel()
			_ = s.mux.Close()
			return err
		}
		keys = producer
	}

	s.ctx, s.cancel = runCtx, cancel
	s.done = make(chan struct{})
	s.started = true

	s.logger.Info(
		"server start",
		"log_server", s.options.enableLogServer,
		"rpc", s.options.enableRPC,
		"log_socket", s.cfg.LogServer.SocketPath,
		"rpc_socket", s.cfg.RPC.SocketPath,
	)

	g, gctx := errgroup.WithContext(runCtx)
	s.goTask(g, "mux", func() error {
		err := s.mux.Run(gctx)
		// The mux ending is the process ending; take the services down with it.
		cancel()
		return quietCancel(gctx, err)
	})
	if keys != nil {
		s.goTask(g, "keyboard", func() error {
			return quietCancel(gctx, input.Pump(gctx, s.keys, keys))
		})
	}
	if s.logSrv != nil {
		s.goTask(g, "log server", func() error {
			if err := s.logSrv.ListenAndServe(gctx); err != nil {
				s.logger.Error("log server failed", "err", err)
				return err
			}
			return nil
		})
	}
	if s.rpcSrv != nil {
		s.goTask(g, "rpc server", func() error {
			if err := s.rpcSrv.ListenAndServe(gctx); err != nil {
				s.logger.Error("rpc server failed", "err", err)
				return err
			}
			return nil
		})
	}

	go func() {
		err := g.Wait()
		_ = s.mux.Close()
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("server stopped", "err", err)
		} else {
			s.logger.Info("server stopped")
		}
		close(s.done)
	}()
	return nil
}

// Wait blocks until the multiplexer and every service have stopped.
func (s *compositeServer) Wait() error {
	s.mu.Lock()
	done := s.done
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}
	<-done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	s.logger.Info("server stop requested")
	cancel()
	if ctx == nil {
		<-done
		return nil
	}
	select {
	case <-ctx.Done():
		s.logger.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		return nil
	}
}

// goTask runs fn in g, returning a panic as an error so the group shuts
// down through Wait and the caller's deferred cleanup still runs.
func (s *compositeServer) goTask(g *errgroup.Group, name string, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("server task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
				err = schema.Recovered(name, r)
			}
		}()
		return fn()
	})
}

// quietCancel drops the cancellation error a task returns because the group
// is shutting down, so Wait reports only the cause.
func quietCancel(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
