package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrOpenPTY indicates the pseudo-terminal pair could not be allocated.
	ErrOpenPTY = errors.New("open pty failed")
	// ErrFork indicates the child process could not be created.
	ErrFork = errors.New("fork failed")
	// ErrSpawn indicates the shell could not be executed in the child.
	ErrSpawn = errors.New("spawn shell failed")
	// ErrRead indicates a pseudo-terminal read failed.
	ErrRead = errors.New("pty read failed")
	// ErrWrite indicates a pseudo-terminal write failed.
	ErrWrite = errors.New("pty write failed")
	// ErrRetrieveTerminalSize indicates the terminal dimensions could not be determined.
	ErrRetrieveTerminalSize = errors.New("retrieve terminal size failed")
	// ErrTerminalMode indicates raw mode or the alternate screen could not be entered.
	ErrTerminalMode = errors.New("terminal mode failed")
	// ErrShellNotFound indicates no usable shell path was resolved.
	ErrShellNotFound = errors.New("shell not found")
	// ErrBusClosed indicates a publish on a closed event bus producer.
	ErrBusClosed = errors.New("event bus closed")
	// ErrPaneExited indicates input was sent to a pane whose bridging task ended.
	ErrPaneExited = errors.New("pane exited")
	// ErrInvalidSize indicates a non-positive screen dimension.
	ErrInvalidSize = errors.New("invalid screen size")
	// ErrNoSessions indicates the engine has nothing to run.
	ErrNoSessions = errors.New("no sessions")
	// ErrIndexOutOfRange indicates a selection outside a container's children.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrPanic indicates a task panicked and was stopped.
	ErrPanic = errors.New("panic")
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	// ErrorStartup covers failures that abort before the dispatch loop runs.
	ErrorStartup ErrorKind = "startup"
	// ErrorIO covers pseudo-terminal read/write failures contained to one pane.
	ErrorIO ErrorKind = "io"
	// ErrorChannel covers enqueue attempts on a channel whose consumer is gone.
	ErrorChannel ErrorKind = "channel"
	// ErrorDecode covers UTF-8 decoding edge cases.
	ErrorDecode ErrorKind = "decode"
	// ErrorPanic covers tasks stopped by a recovered panic.
	ErrorPanic ErrorKind = "panic"
)

// Error wraps an engine failure with a stable classification.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError constructs a classified engine error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "splix error"
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s failed", e.Op)
	}
	return "splix error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Recovered converts a value returned by recover into a classified error.
func Recovered(op string, v any) error {
	if err, ok := v.(error); ok {
		return NewError(ErrorPanic, op, fmt.Errorf("%w: %w", ErrPanic, err))
	}
	return NewError(ErrorPanic, op, fmt.Errorf("%w: %v", ErrPanic, v))
}

// KindOf returns the classification of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}
