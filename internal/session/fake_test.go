package session

import (
	"bytes"
	"io"
	"sync"
)

// fakeHandle emulates a PTY pair in memory. emit plays the role of child
// output, Write collects forwarded input, and exit ends the child while
// leaving buffered output readable, matching master-side PTY semantics.
type fakeHandle struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending bytes.Buffer
	input   bytes.Buffer
	eof     bool
	closed  bool
	killed  bool
	resizes [][2]uint16

	exitOnce sync.Once
	exited   chan struct{}
	exitInfo ExitInfo

	pid int
}

var _ Handle = (*fakeHandle)(nil)

func newFakeHandle(pid int) *fakeHandle {
	h := &fakeHandle{pid: pid, exited: make(chan struct{})}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func (h *fakeHandle) emit(data string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending.WriteString(data)
	h.cond.Broadcast()
}

func (h *fakeHandle) exit(info ExitInfo) {
	h.exitOnce.Do(func() {
		h.mu.Lock()
		h.eof = true
		h.cond.Broadcast()
		h.mu.Unlock()
		h.exitInfo = info
		close(h.exited)
	})
}

func (h *fakeHandle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.pending.Len() == 0 && !h.eof && !h.closed {
		h.cond.Wait()
	}
	if h.pending.Len() > 0 {
		return h.pending.Read(p)
	}
	return 0, io.EOF
}

func (h *fakeHandle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, io.ErrClosedPipe
	}
	return h.input.Write(p)
}

func (h *fakeHandle) Resize(cols, rows uint16) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resizes = append(h.resizes, [2]uint16{cols, rows})
	return nil
}

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	h.killed = true
	h.mu.Unlock()
	h.exit(ExitInfo{Code: -1, Signal: "terminated"})
	return nil
}

func (h *fakeHandle) Wait() ExitInfo {
	<-h.exited
	return h.exitInfo
}

func (h *fakeHandle) Pid() int { return h.pid }

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.cond.Broadcast()
	return nil
}

func (h *fakeHandle) inputString() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.input.String()
}

func (h *fakeHandle) wasKilled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.killed
}

func (h *fakeHandle) resizeLog() [][2]uint16 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][2]uint16, len(h.resizes))
	copy(out, h.resizes)
	return out
}

type spawnArgs struct {
	command string
	args    []string
	dir     string
	env     []string
	cols    uint16
	rows    uint16
}

// fakeFactory hands out fakeHandles and records every spawn request.
type fakeFactory struct {
	mu      sync.Mutex
	err     error
	nextPid int
	handles []*fakeHandle
	calls   []spawnArgs
}

var _ Factory = (*fakeFactory)(nil)

func (f *fakeFactory) Spawn(command string, args []string, dir string, env []string, cols, rows uint16) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextPid++
	h := newFakeHandle(1000 + f.nextPid)
	f.handles = append(f.handles, h)
	f.calls = append(f.calls, spawnArgs{command, args, dir, env, cols, rows})
	return h, nil
}

func (f *fakeFactory) last() *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

func (f *fakeFactory) call(i int) spawnArgs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}
