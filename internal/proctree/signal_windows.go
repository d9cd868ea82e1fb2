//go:build windows

package proctree

import "os"

// nativeSignaler signals pids directly. Windows has no graceful TERM, so
// both signals map to TerminateProcess and no escalation pass is needed.
type nativeSignaler struct{}

func (nativeSignaler) Term(pid int) error {
	return terminate(pid)
}

func (nativeSignaler) Kill(pid int) error {
	return terminate(pid)
}

func (nativeSignaler) Alive(pid int) bool {
	// Termination is immediate here, so the escalation pass has nothing
	// left to do.
	return false
}

func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
