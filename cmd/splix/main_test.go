package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/splix/internal/logserver"
	"pkt.systems/splix/internal/rpc"
	"pkt.systems/splix/schema"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func findCmd(root *cobra.Command, name string) *cobra.Command {
	for _, cmd := range root.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func TestRootCommandTree(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
	}{
		{name: "logs", flags: []string{"follow"}},
		{name: "hello", flags: []string{"name", "rpc-socket"}},
		{name: "config"},
		{name: "version", flags: []string{"verbose"}},
	}
	root := newRootCmd()
	for _, tc := range tests {
		cmd := findCmd(root, tc.name)
		if cmd == nil {
			t.Fatalf("expected root command to include %s", tc.name)
		}
		for _, flag := range tc.flags {
			if cmd.Flags().Lookup(flag) == nil {
				t.Fatalf("%s: expected flag --%s", tc.name, flag)
			}
		}
	}
	for _, flag := range []string{"config", "socket-path"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("expected persistent flag --%s", flag)
		}
	}
	if findCmd(findCmd(root, "config"), "init") == nil {
		t.Fatalf("expected config init")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "pkt.systems/splix ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestConfigInitWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := execute(t, "config", "init", "-c", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "config_version: 1") {
		t.Fatalf("unexpected config %s", data)
	}
	if _, err := execute(t, "config", "init", "-c", path); err == nil {
		t.Fatalf("expected init to refuse overwrite")
	}
	if _, err := execute(t, "config", "init", "-c", path, "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestSocketPathFlagOverridesConfig(t *testing.T) {
	cfg, err := loadConfig(&rootFlags{
		configPath: filepath.Join(t.TempDir(), "absent.yaml"),
		socketPath: "/tmp/other.sock",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogServer.SocketPath != "/tmp/other.sock" {
		t.Fatalf("expected override, got %q", cfg.LogServer.SocketPath)
	}
}

func TestLogsCommandPrintsHistory(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "logs.sock")
	hub := logserver.NewHub(8)
	_, _ = hub.Write([]byte("{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- logserver.NewServer(logserver.Config{SocketPath: sock}, hub).ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	var out string
	var err error
	for i := 0; i < 100; i++ {
		out, err = execute(t, "logs", "-c", filepath.Join(dir, "absent.yaml"), "--socket-path", sock)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n" {
		t.Fatalf("unexpected logs %q", out)
	}
}

func TestHelloCommand(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "rpc.sock")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rpc.NewServer(rpc.Config{SocketPath: sock}, rpc.Service{}).ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	var out string
	var err error
	for i := 0; i < 100; i++ {
		out, err = execute(t, "hello", "--rpc-socket", sock, "--name", "pane")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("hello: %v", err)
	}
	if out != "hello, pane\n" {
		t.Fatalf("unexpected reply %q", out)
	}
}

func TestRootRequiresTerminal(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "config_version: 1\nshell: /bin/sh\nlogging:\n  dir: " + filepath.Join(dir, "logs") + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	notTTY, err := os.Create(filepath.Join(dir, "screen"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer notTTY.Close()
	oldIn, oldOut := stdin, stdout
	stdin, stdout = notTTY, notTTY
	t.Cleanup(func() { stdin, stdout = oldIn, oldOut })

	_, err = execute(t, "-c", cfgPath)
	if !errors.Is(err, schema.ErrRetrieveTerminalSize) {
		t.Fatalf("expected terminal size error, got %v", err)
	}
	if schema.KindOf(err) != schema.ErrorStartup {
		t.Fatalf("expected startup error, got %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err != nil || len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), logFilePrefix+".") {
		t.Fatalf("expected one daily log file, got %v (%v)", entries, err)
	}
}
