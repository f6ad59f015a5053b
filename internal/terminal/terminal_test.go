//go:build unix

package terminal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/splix/schema"
)

func requirePTY(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("pty not available")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func readUntil(t *testing.T, p *PTY, want string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out strings.Builder
	for !strings.Contains(out.String(), want) {
		runes, err := p.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v (have %q)", err, out.String())
		}
		if len(runes) == 0 {
			break
		}
		out.WriteString(string(runes))
	}
	return out.String()
}

func TestOpenRunsShellAndReadsOutput(t *testing.T) {
	requirePTY(t)
	p, err := Open(context.Background(), Options{
		Shell: "/bin/sh",
		Args:  []string{"-c", "printf 'h\\303\\251llo\\n'; echo $TERM"},
		Env:   []string{"PATH=/usr/bin:/bin"},
		Cols:  80,
		Rows:  24,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()
	if p.Pid() <= 0 {
		t.Fatalf("expected pid")
	}
	out := readUntil(t, p, defaultTerm)
	if !strings.Contains(out, "héllo") {
		t.Fatalf("expected decoded output, got %q", out)
	}
}

func TestReadReportsEndOfStream(t *testing.T) {
	requirePTY(t)
	p, err := Open(context.Background(), Options{Shell: "/bin/sh", Args: []string{"-c", "echo done"}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		runes, err := p.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(runes) == 0 {
			return
		}
	}
}

func TestWriteReachesShell(t *testing.T) {
	requirePTY(t)
	p, err := Open(context.Background(), Options{Shell: "/bin/sh", Args: []string{"-c", "read line; echo got:$line"}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()
	ctx := context.Background()
	for _, b := range []byte("ping\n") {
		if err := p.Write(ctx, b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if out := readUntil(t, p, "got:ping"); !strings.Contains(out, "got:ping") {
		t.Fatalf("expected echo, got %q", out)
	}
}

func TestReadHonorsContext(t *testing.T) {
	requirePTY(t)
	p, err := Open(context.Background(), Options{Shell: "/bin/sh", Args: []string{"-c", "sleep 5"}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Read(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestOpenMissingShellIsSpawnFailure(t *testing.T) {
	requirePTY(t)
	_, err := Open(context.Background(), Options{Shell: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, schema.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if schema.KindOf(err) != schema.ErrorStartup {
		t.Fatalf("expected startup kind, got %q", schema.KindOf(err))
	}
}

func TestOpenEmptyShell(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); !errors.Is(err, schema.ErrShellNotFound) {
		t.Fatalf("expected ErrShellNotFound, got %v", err)
	}
}

func TestFactorySetsPaneEnv(t *testing.T) {
	requirePTY(t)
	f := Factory{Shell: "/bin/sh", Args: []string{"-c", "echo pane=$" + PaneEnv}, Env: []string{}}
	term, err := f.Open(context.Background(), schema.NewPaneID(schema.NewWindowID(schema.NewSessionID(0), 0), 2))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer term.Close()
	if out := readUntil(t, term.(*PTY), "pane=0:0:2"); !strings.Contains(out, "pane=0:0:2") {
		t.Fatalf("expected pane env, got %q", out)
	}
}

func TestClassifyStart(t *testing.T) {
	if err := classifyStart("/bin/x", errors.New("resource temporarily unavailable")); !errors.Is(err, schema.ErrFork) {
		t.Fatalf("expected ErrFork, got %v", err)
	}
	if err := classifyStart("/bin/x", os.ErrNotExist); !errors.Is(err, schema.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestWithTerm(t *testing.T) {
	env := withTerm([]string{"A=1"})
	if env[len(env)-1] != "TERM="+defaultTerm {
		t.Fatalf("expected default TERM, got %v", env)
	}
	env = withTerm([]string{"TERM=vt100"})
	if len(env) != 1 || env[0] != "TERM=vt100" {
		t.Fatalf("expected TERM preserved, got %v", env)
	}
}
