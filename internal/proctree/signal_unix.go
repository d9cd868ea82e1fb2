//go:build !windows

package proctree

import "golang.org/x/sys/unix"

// nativeSignaler signals pids directly.
type nativeSignaler struct{}

func (nativeSignaler) Term(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

func (nativeSignaler) Kill(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

// Alive reports whether the pid still accepts signals. Signal 0 performs the
// permission and existence checks without delivering anything.
func (nativeSignaler) Alive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
