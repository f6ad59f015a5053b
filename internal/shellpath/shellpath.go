// Package shellpath resolves the shell each pane runs.
package shellpath

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"pkt.systems/splix/schema"
)

// EnvVar names the environment variable holding the user's shell.
const EnvVar = "SHELL"

// Resolve returns the configured shell, or $SHELL when override is empty.
// Bare names are looked up in PATH. The result must be an executable file.
func Resolve(override string) (string, error) {
	shell := strings.TrimSpace(override)
	if shell == "" {
		shell = strings.TrimSpace(os.Getenv(EnvVar))
	}
	if shell == "" {
		return "", fmt.Errorf("%w: $%s is not set", schema.ErrShellNotFound, EnvVar)
	}
	if !strings.ContainsRune(shell, os.PathSeparator) {
		path, err := exec.LookPath(shell)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", schema.ErrShellNotFound, shell, err)
		}
		shell = path
	}
	info, err := os.Stat(shell)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", schema.ErrShellNotFound, shell, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", schema.ErrShellNotFound, shell)
	}
	return shell, nil
}
