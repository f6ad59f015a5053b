//go:build unix

package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"pkt.systems/pslog"
	"pkt.systems/splix/internal/asyncfile"
	"pkt.systems/splix/schema"
)

const (
	readBufferSize = 4096
	defaultTerm    = "xterm-256color"
	closeGrace     = 2 * time.Second
)

// Options configures the shell hosted by a PTY.
type Options struct {
	Shell string
	Args  []string
	// Env replaces the inherited environment when non-nil.
	Env  []string
	Dir  string
	Cols int
	Rows int
	// Logger receives driver diagnostics.
	Logger pslog.Logger
}

// PTY hosts one shell process behind a pseudo-terminal master.
// Read and Write may be called concurrently with each other, but each
// must only be called from one goroutine at a time.
type PTY struct {
	master *asyncfile.File
	cmd    *exec.Cmd
	log    pslog.Logger

	dec  Decoder
	rbuf [readBufferSize]byte
	wbuf [1]byte

	closeOnce sync.Once
	closeErr  error
}

// Open allocates a pseudo-terminal, starts the shell on its slave side as a
// session leader with the slave as controlling terminal, and keeps a
// non-blocking duplicate of the master.
func Open(ctx context.Context, opts Options) (*PTY, error) {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	if strings.TrimSpace(opts.Shell) == "" {
		return nil, schema.NewError(schema.ErrorStartup, "spawn", schema.ErrShellNotFound)
	}

	master, tty, err := pty.Open()
	if err != nil {
		return nil, schema.NewError(schema.ErrorStartup, "open pty", fmt.Errorf("%w: %v", schema.ErrOpenPTY, err))
	}
	if opts.Cols > 0 && opts.Rows > 0 {
		if err := pty.Setsize(tty, &pty.Winsize{Cols: uint16(opts.Cols), Rows: uint16(opts.Rows)}); err != nil {
			_ = tty.Close()
			_ = master.Close()
			return nil, schema.NewError(schema.ErrorStartup, "open pty", fmt.Errorf("%w: set size: %v", schema.ErrOpenPTY, err))
		}
	}

	cmd := exec.Command(opts.Shell, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = withTerm(opts.Env)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	startErr := cmd.Start()
	_ = tty.Close()
	if startErr != nil {
		_ = master.Close()
		return nil, classifyStart(opts.Shell, startErr)
	}

	async, err := asyncfile.Dup(master)
	_ = master.Close()
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, schema.NewError(schema.ErrorStartup, "open pty", fmt.Errorf("%w: nonblock: %v", schema.ErrOpenPTY, err))
	}

	logger.Debug("pty opened", "shell", opts.Shell, "pid", cmd.Process.Pid, "cols", opts.Cols, "rows", opts.Rows)
	return &PTY{master: async, cmd: cmd, log: logger}, nil
}

// Pid returns the shell's process id.
func (t *PTY) Pid() int {
	if t == nil || t.cmd == nil || t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

// Read waits until output is available and returns the decoded runes.
// An empty result with a nil error signals end-of-stream.
func (t *PTY) Read(ctx context.Context) ([]rune, error) {
	for {
		n, err := t.readBytes(ctx)
		if n > 0 {
			out := t.dec.Decode(nil, t.rbuf[:n])
			if len(out) > 0 {
				return out, nil
			}
			if err == nil {
				// Only a partial sequence arrived; wait for the rest.
				continue
			}
		}
		if err == nil {
			continue
		}
		if isEndOfStream(err) {
			if dropped := t.dec.Flush(); dropped > 0 {
				t.log.Trace("pty discarded incomplete utf-8 tail", "bytes", dropped)
			}
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, schema.NewError(schema.ErrorIO, "read", fmt.Errorf("%w: %v", schema.ErrRead, err))
	}
}

func (t *PTY) readBytes(ctx context.Context) (int, error) {
	return t.master.Read(ctx, t.rbuf[:])
}

// Write forwards one byte to the shell's input.
func (t *PTY) Write(ctx context.Context, b byte) error {
	t.wbuf[0] = b
	_, err := t.master.Write(ctx, t.wbuf[:])
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return ctxErr
	}
	if err != nil {
		return schema.NewError(schema.ErrorIO, "write", fmt.Errorf("%w: %v", schema.ErrWrite, err))
	}
	return nil
}

// Close closes the master, hangs up the shell and reaps it.
func (t *PTY) Close() error {
	if t == nil {
		return nil
	}
	t.closeOnce.Do(func() {
		t.closeErr = t.master.Close()
		if t.cmd.Process == nil {
			return
		}
		_ = t.cmd.Process.Signal(syscall.SIGHUP)
		done := make(chan error, 1)
		go func() { done <- t.cmd.Wait() }()
		select {
		case err := <-done:
			t.log.Debug("pty shell reaped", "pid", t.cmd.Process.Pid, "err", err)
		case <-time.After(closeGrace):
			_ = t.cmd.Process.Kill()
			<-done
			t.log.Warn("pty shell killed", "pid", t.cmd.Process.Pid)
		}
	})
	if errors.Is(t.closeErr, os.ErrClosed) {
		return nil
	}
	return t.closeErr
}

func classifyStart(shell string, err error) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, unix.ENOEXEC) {
		return schema.NewError(schema.ErrorStartup, "spawn", fmt.Errorf("%w: %s: %v", schema.ErrSpawn, shell, err))
	}
	return schema.NewError(schema.ErrorStartup, "fork", fmt.Errorf("%w: %v", schema.ErrFork, err))
}

// isEndOfStream reports whether err means the slave side hung up.
// Linux reports EIO on the master once the last slave fd closes.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, unix.EIO)
}

func withTerm(env []string) []string {
	if env == nil {
		env = os.Environ()
	}
	out := make([]string, 0, len(env)+1)
	hasTerm := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERM=") {
			hasTerm = true
		}
		out = append(out, kv)
	}
	if !hasTerm {
		out = append(out, "TERM="+defaultTerm)
	}
	return out
}
