//go:build unix

package terminal

import (
	"context"
	"os"

	"pkt.systems/pslog"
	"pkt.systems/splix/core"
	"pkt.systems/splix/internal/logx"
	"pkt.systems/splix/schema"
)

// PaneEnv is set in every shell's environment to the id of its pane.
const PaneEnv = "SPLIX_PANE"

// Factory opens one PTY per pane, all running the same shell at the same size.
type Factory struct {
	Shell  string
	Args   []string
	Env    []string
	Dir    string
	Cols   int
	Rows   int
	Logger pslog.Logger
}

// Open starts a shell for pane.
func (f Factory) Open(ctx context.Context, pane schema.PaneID) (core.Terminal, error) {
	env := f.Env
	if env == nil {
		env = os.Environ()
	}
	env = append(append([]string(nil), env...), PaneEnv+"="+pane.String())
	logger := f.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	t, err := Open(ctx, Options{
		Shell:  f.Shell,
		Args:   f.Args,
		Env:    env,
		Dir:    f.Dir,
		Cols:   f.Cols,
		Rows:   f.Rows,
		Logger: logx.WithPane(logger, pane),
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
