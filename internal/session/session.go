package session

import (
	"sync"
	"time"
)

// drainTimeout bounds how long the monitor waits for the reader to pull
// remaining output after the process exits. Descendants holding the terminal
// open would otherwise stall teardown forever.
const drainTimeout = 500 * time.Millisecond

// DataFunc receives one output chunk from a session. Chunks are delivered in
// production order from a single goroutine per session.
type DataFunc func(id string, chunk []byte)

// ExitFunc is invoked exactly once when a session's process terminates,
// after the final DataFunc call. The session id is free for reuse by the
// time ExitFunc runs.
type ExitFunc func(id string, exit ExitInfo)

// session tracks one live PTY process.
type session struct {
	id        string
	command   string
	dir       string
	startedAt time.Time

	handle Handle
	onData DataFunc
	onExit ExitFunc

	mu     sync.Mutex
	cond   *sync.Cond
	cols   uint16
	rows   uint16
	paused bool
	closed bool

	readerDone chan struct{}
}

func newSession(id, command, dir string, cols, rows uint16, h Handle, onData DataFunc, onExit ExitFunc) *session {
	s := &session{
		id:         id,
		command:    command,
		dir:        dir,
		startedAt:  time.Now(),
		handle:     h,
		onData:     onData,
		onExit:     onExit,
		cols:       cols,
		rows:       rows,
		readerDone: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// pump reads output from the PTY and forwards it until the descriptor is
// gone. While paused it stops issuing reads entirely, so the kernel-side PTY
// buffer fills and the child eventually blocks on write.
func (s *session) pump() {
	defer close(s.readerDone)

	buf := make([]byte, 4096)
	for {
		s.gate()

		n, err := s.handle.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.onData(s.id, chunk)
		}
		if err != nil {
			return
		}
	}
}

// gate blocks while the session is paused and not yet closed.
func (s *session) gate() {
	s.mu.Lock()
	for s.paused && !s.closed {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// monitor waits for the process to exit, lets the reader drain remaining
// output, releases resources, removes the session from tracking, and fires
// the exit callback last.
func (s *session) monitor(r *Registry) {
	exit := s.handle.Wait()

	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	// The reader finishes on its own once the last terminal holder is gone;
	// bound the wait so lingering descendants cannot stall teardown.
	select {
	case <-s.readerDone:
	case <-time.After(drainTimeout):
	}

	s.handle.Close()
	<-s.readerDone

	r.sessions.Delete(s.id)
	if s.onExit != nil {
		s.onExit(s.id, exit)
	}
}

func (s *session) pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *session) resume() {
	s.mu.Lock()
	s.paused = false
	s.cond.Broadcast()
	s.mu.Unlock()
}

// close requests termination. Safe to call multiple times; only the first
// call signals the process. Resource release happens in monitor.
func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	s.handle.Kill()
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) dimensions() (uint16, uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

func (s *session) setDimensions(cols, rows uint16) {
	s.mu.Lock()
	s.cols = cols
	s.rows = rows
	s.mu.Unlock()
}
