package shellpath

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/splix/schema"
)

func writeShell(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), mode); err != nil {
		t.Fatalf("write shell: %v", err)
	}
	return path
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	exe := writeShell(t, dir, "myshell", 0o755)
	plain := writeShell(t, dir, "notexec", 0o644)

	cases := []struct {
		name     string
		env      string
		override string
		want     string
		ok       bool
	}{
		{"env", exe, "", exe, true},
		{"override wins", "/nonexistent", exe, exe, true},
		{"unset", "", "", "", false},
		{"missing", filepath.Join(dir, "nope"), "", "", false},
		{"directory", dir, "", "", false},
		{"not executable", plain, "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvVar, tc.env)
			got, err := Resolve(tc.override)
			if tc.ok {
				if err != nil {
					t.Fatalf("resolve: %v", err)
				}
				if got != tc.want {
					t.Fatalf("expected %q, got %q", tc.want, got)
				}
				return
			}
			if !errors.Is(err, schema.ErrShellNotFound) {
				t.Fatalf("expected ErrShellNotFound, got %v", err)
			}
		})
	}
}

func TestResolveLooksUpBareName(t *testing.T) {
	dir := t.TempDir()
	exe := writeShell(t, dir, "fish", 0o755)
	t.Setenv("PATH", dir)
	t.Setenv(EnvVar, "fish")
	got, err := Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != exe {
		t.Fatalf("expected %q, got %q", exe, got)
	}
}
