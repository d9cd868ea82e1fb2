package session

import (
	"os"
	"os/exec"
	"runtime"
)

// DefaultShell resolves the shell used for shell-role sessions and for the
// login-environment probe. Resolution order: $SHELL, then well-known shells,
// then /bin/sh. On Windows it prefers %COMSPEC%.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}

	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	for _, candidate := range []string{"/bin/zsh", "/bin/bash"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return "/bin/sh"
}
