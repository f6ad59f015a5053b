package rpc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"pkt.systems/pslog"
)

// DefaultSocketPath is where the API listens unless configured.
const DefaultSocketPath = "/tmp/splix-rpc.sock"

// Config controls the API server and client.
type Config struct {
	SocketPath string
}

// Server serves the splix API over a Unix socket.
type Server struct {
	cfg    Config
	api    APIServer
	logger pslog.Logger
}

// NewServer constructs an API server. A nil api serves Service.
func NewServer(cfg Config, api APIServer) *Server {
	if api == nil {
		api = Service{}
	}
	return &Server{cfg: cfg, api: api}
}

// ListenAndServe serves until ctx ends, replacing any stale socket file.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.SocketPath == "" {
		return errors.New("rpc socket path is required")
	}
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.SocketPath), 0o755); err != nil {
		return err
	}
	_ = os.Remove(s.cfg.SocketPath)

	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	RegisterAPIServer(grpcServer, s.api)
	s.logger.Info("rpc listening", "socket", s.cfg.SocketPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		grpcServer.GracefulStop()
		_ = os.Remove(s.cfg.SocketPath)
		s.logger.Debug("rpc stopped")
		return nil
	case err := <-errCh:
		_ = os.Remove(s.cfg.SocketPath)
		return err
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	log := s.logger.With("method", info.FullMethod)
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("rpc handler panicked", "panic", r, "stack", string(debug.Stack()))
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	resp, err = handler(pslog.ContextWithLogger(ctx, log), req)
	if err != nil {
		log.Warn("rpc call failed", "code", status.Code(err).String(), "err", err, "duration", time.Since(started))
		return nil, err
	}
	log.Debug("rpc call", "duration", time.Since(started))
	return resp, nil
}
