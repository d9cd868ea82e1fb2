package session

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// ExitInfo describes how a process terminated.
type ExitInfo struct {
	Code   int    `json:"code"`
	Signal string `json:"signal,omitempty"`
}

// Handle is one spawned PTY process: the controlling descriptor plus the
// child it is attached to.
type Handle interface {
	// Read blocks until output is available or the process side is gone.
	Read(p []byte) (int, error)
	// Write forwards input bytes to the process.
	Write(p []byte) (int, error)
	// Resize updates the PTY window size.
	Resize(cols, rows uint16) error
	// Kill terminates the child process.
	Kill() error
	// Wait blocks until the child exits and reports how.
	Wait() ExitInfo
	// Pid returns the OS process id of the child.
	Pid() int
	// Close releases the controlling descriptor.
	Close() error
}

// Factory creates PTY handles. Production uses the native PTY layer;
// tests inject fakes so the Registry can be exercised without real
// processes.
type Factory interface {
	Spawn(command string, args []string, dir string, env []string, cols, rows uint16) (Handle, error)
}

var (
	factoryOnce    sync.Once
	defaultFactory Factory
)

// DefaultFactory returns the process-wide PTY factory. Construction is
// deferred until first use and happens exactly once.
func DefaultFactory() Factory {
	factoryOnce.Do(func() {
		defaultFactory = &ptyFactory{}
	})
	return defaultFactory
}

// ptyFactory spawns real processes attached to pseudo-terminals.
type ptyFactory struct{}

var _ Factory = (*ptyFactory)(nil)

func (f *ptyFactory) Spawn(command string, args []string, dir string, env []string, cols, rows uint16) (Handle, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	return &ptyHandle{ptmx: ptmx, cmd: cmd}, nil
}

// ptyHandle wraps the PTY master descriptor and the spawned command.
type ptyHandle struct {
	ptmx *os.File
	cmd  *exec.Cmd
}

var _ Handle = (*ptyHandle)(nil)

func (h *ptyHandle) Read(p []byte) (int, error)  { return h.ptmx.Read(p) }
func (h *ptyHandle) Write(p []byte) (int, error) { return h.ptmx.Write(p) }

func (h *ptyHandle) Resize(cols, rows uint16) error {
	return pty.Setsize(h.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

func (h *ptyHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

func (h *ptyHandle) Wait() ExitInfo {
	err := h.cmd.Wait()
	return exitInfoFromErr(h.cmd, err)
}

func (h *ptyHandle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *ptyHandle) Close() error { return h.ptmx.Close() }

// exitInfoFromErr extracts exit code and terminating signal from a completed
// command.
func exitInfoFromErr(cmd *exec.Cmd, err error) ExitInfo {
	state := cmd.ProcessState
	if state == nil {
		if err != nil {
			return ExitInfo{Code: -1}
		}
		return ExitInfo{}
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitInfo{Code: -1, Signal: ws.Signal().String()}
	}
	return ExitInfo{Code: state.ExitCode()}
}
