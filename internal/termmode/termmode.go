// Package termmode puts the controlling terminal into raw mode on the
// alternate screen and restores it exactly once.
package termmode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
	"pkt.systems/splix/schema"
)

const (
	enterAltScreen = "\x1b[?1049h\x1b[H\x1b[2J"
	exitAltScreen  = "\x1b[?1049l\x1b[?25h"
)

var (
	isTerminal   = term.IsTerminal
	makeRaw      = term.MakeRaw
	restoreState = term.Restore
	getSize      = term.GetSize
)

// Guard holds the terminal state saved on entry.
type Guard struct {
	fd    int
	out   io.Writer
	state *term.State

	once sync.Once
	err  error
}

// Enter switches in to raw mode and out to the alternate screen.
func Enter(in *os.File, out io.Writer) (*Guard, error) {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		return nil, schema.NewError(schema.ErrorStartup, "terminal mode", fmt.Errorf("%w: %s is not a terminal", schema.ErrTerminalMode, in.Name()))
	}
	state, err := makeRaw(fd)
	if err != nil {
		return nil, schema.NewError(schema.ErrorStartup, "terminal mode", fmt.Errorf("%w: raw mode: %v", schema.ErrTerminalMode, err))
	}
	if _, err := io.WriteString(out, enterAltScreen); err != nil {
		_ = restoreState(fd, state)
		return nil, schema.NewError(schema.ErrorStartup, "terminal mode", fmt.Errorf("%w: alternate screen: %v", schema.ErrTerminalMode, err))
	}
	return &Guard{fd: fd, out: out, state: state}, nil
}

// Restore leaves the alternate screen and restores the saved mode.
// Only the first call has an effect.
func (g *Guard) Restore() error {
	if g == nil {
		return nil
	}
	g.once.Do(func() {
		_, writeErr := io.WriteString(g.out, exitAltScreen)
		g.err = errors.Join(writeErr, restoreState(g.fd, g.state))
	})
	return g.err
}

// Size returns the width and height of the terminal behind f.
func Size(f *os.File) (width, height int, err error) {
	width, height, err = getSize(int(f.Fd()))
	if err != nil {
		return 0, 0, schema.NewError(schema.ErrorStartup, "terminal size", fmt.Errorf("%w: %v", schema.ErrRetrieveTerminalSize, err))
	}
	if width <= 0 || height <= 0 {
		return 0, 0, schema.NewError(schema.ErrorStartup, "terminal size", fmt.Errorf("%w: %dx%d", schema.ErrRetrieveTerminalSize, width, height))
	}
	return width, height, nil
}
