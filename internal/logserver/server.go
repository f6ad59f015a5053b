// Package logserver mirrors the process log to clients over a Unix socket.
//
// A client sends one big-endian uint64 request. The server answers with
// every retained line, each terminated by '\n', and for RequestFollow keeps
// streaming new lines until the client disconnects.
package logserver

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// DefaultSocketPath is where the log server listens unless configured.
const DefaultSocketPath = "/tmp/splix.sock"

const requestTimeout = 5 * time.Second

// Request selects what the server sends back.
type Request uint64

const (
	// RequestUnknown is any unrecognized value; it is answered like RequestGetAll.
	RequestUnknown Request = 0
	// RequestGetAll asks for the retained lines only.
	RequestGetAll Request = 1
	// RequestFollow asks for the retained lines and then every new line.
	RequestFollow Request = 2
)

func parseRequest(v uint64) Request {
	switch Request(v) {
	case RequestGetAll, RequestFollow:
		return Request(v)
	default:
		return RequestUnknown
	}
}

func (r Request) String() string {
	switch r {
	case RequestGetAll:
		return "get_all"
	case RequestFollow:
		return "follow"
	default:
		return "unknown"
	}
}

// Config controls the log server.
type Config struct {
	SocketPath string
}

// Server serves a Hub over a Unix socket.
type Server struct {
	cfg    Config
	hub    *Hub
	logger pslog.Logger
	wg     sync.WaitGroup
}

// NewServer constructs a log server for hub.
func NewServer(cfg Config, hub *Hub) *Server {
	return &Server{cfg: cfg, hub: hub}
}

// ListenAndServe accepts clients until ctx ends, then waits for open
// connections and removes the socket.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.SocketPath == "" {
		return errors.New("log server socket path is required")
	}
	if s.hub == nil {
		return errors.New("log hub is required")
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
	s.logger.Info("log server listening", "socket", s.cfg.SocketPath)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(runCtx, func() { _ = listener.Close() })
	defer stop()

	var serveErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if runCtx.Err() == nil {
				serveErr = err
			}
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					_ = conn.Close()
					s.logger.Error("log client handler panicked", "panic", r, "stack", string(debug.Stack()))
				}
			}()
			s.handle(runCtx, conn)
		}()
	}
	cancel()
	s.wg.Wait()
	_ = os.Remove(s.cfg.SocketPath)
	s.logger.Debug("log server stopped")
	return serveErr
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(connCtx, func() { _ = conn.Close() })
	defer stop()

	var raw [8]byte
	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	if _, err := io.ReadFull(conn, raw[:]); err != nil {
		s.logger.Debug("log client request failed", "err", err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	req := parseRequest(binary.BigEndian.Uint64(raw[:]))
	s.logger.Debug("log client connected", "request", req)

	w := bufio.NewWriter(conn)
	if req != RequestFollow {
		if err := writeLines(w, s.hub.History()); err != nil {
			s.logger.Debug("log client write failed", "err", err)
			return
		}
		_ = w.Flush()
		return
	}

	sub, history := s.hub.Subscribe()
	defer sub.Close()
	if err := writeLines(w, history); err != nil {
		return
	}
	if err := w.Flush(); err != nil {
		return
	}

	// A follower never sends more data; EOF means it went away.
	go func() {
		_, _ = io.Copy(io.Discard, conn)
		cancel()
	}()

	lines := sub.Lines()
	lag := lagReporter{interval: lagWarnInterval}
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := writeLines(w, []string{line}); err != nil {
				return
			}
			if len(lines) == 0 {
				if err := w.Flush(); err != nil {
					return
				}
			}
			if total, ok := lag.note(sub.TakeDropped(), time.Now()); ok {
				s.logger.Warn("log follower lagging", "dropped", total)
			}
		case <-connCtx.Done():
			s.logger.Debug("log follower disconnected", "dropped_unreported", lag.pending)
			return
		}
	}
}

func writeLines(w *bufio.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// lagWarnInterval bounds how often a lagging follower is warned about; the
// warning is itself written to the hub the follower reads.
var lagWarnInterval = 5 * time.Second

type lagReporter struct {
	interval time.Duration
	last     time.Time
	pending  uint64
}

// note accumulates dropped lines and reports the total once per interval.
func (l *lagReporter) note(dropped uint64, now time.Time) (uint64, bool) {
	l.pending += dropped
	if l.pending == 0 {
		return 0, false
	}
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		return 0, false
	}
	total := l.pending
	l.pending = 0
	l.last = now
	return total, true
}
