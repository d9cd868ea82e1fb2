package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/termgrid/termgrid/internal/session"
)

// Role describes what a session is for.
type Role string

const (
	// RoleShell is an interactive shell; its exit retires the session.
	RoleShell Role = "shell"
	// RoleAgent runs a specific command; its exit respawns a shell in place.
	RoleAgent Role = "agent"
)

// Status is a session's position in its lifecycle.
type Status string

const (
	StatusSpawning Status = "spawning"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusExited   Status = "exited"
)

// Info is the public view of a coordinated session.
type Info struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Title     string    `json:"title"`
	Command   string    `json:"command"`
	Dir       string    `json:"dir"`
	Cols      uint16    `json:"cols"`
	Rows      uint16    `json:"rows"`
	PID       int       `json:"pid"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// Registry owns the PTY processes behind sessions.
type Registry interface {
	Spawn(spec session.SpawnSpec) (session.SpawnResult, error)
	Write(id string, data []byte) error
	Resize(id string, cols, rows uint16) error
	Pause(id string) error
	Resume(id string) error
	Close(id string) error
	CloseAll()
	Count() int
}

// TreeKiller removes a session's descendant processes.
type TreeKiller interface {
	KillDescendants(ctx context.Context, pid int) int
}

// Events receives lifecycle notifications. Implementations must return
// promptly; output delivery rides on these calls.
type Events interface {
	// SessionSpawned fires for new sessions and for the shell that replaces
	// a finished agent (respawned=true).
	SessionSpawned(info Info, respawned bool)
	// SessionOutput delivers one coalesced output frame.
	SessionOutput(id string, data []byte)
	// SessionExited reports a process exit. final=false means a respawn
	// follows under the same id; every frame of the dead process was
	// delivered before this call.
	SessionExited(id string, exit session.ExitInfo, final bool)
	// SessionFailed reports a failed respawn; the id is retired.
	SessionFailed(id string, err error)
}

// MultiEvents fans every notification out to each sink in order. Nil sinks
// are skipped.
func MultiEvents(sinks ...Events) Events {
	kept := make([]Events, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return multiEvents(kept)
}

type multiEvents []Events

func (m multiEvents) SessionSpawned(info Info, respawned bool) {
	for _, s := range m {
		s.SessionSpawned(info, respawned)
	}
}

func (m multiEvents) SessionOutput(id string, data []byte) {
	for _, s := range m {
		s.SessionOutput(id, data)
	}
}

func (m multiEvents) SessionExited(id string, exit session.ExitInfo, final bool) {
	for _, s := range m {
		s.SessionExited(id, exit, final)
	}
}

func (m multiEvents) SessionFailed(id string, err error) {
	for _, s := range m {
		s.SessionFailed(id, err)
	}
}

// Stats counts lifecycle activity.
type Stats interface {
	RecordSpawn(role string)
	RecordExit(role string)
	RecordOutput(bytes int)
}

type noopEvents struct{}

func (noopEvents) SessionSpawned(Info, bool)                    {}
func (noopEvents) SessionOutput(string, []byte)                 {}
func (noopEvents) SessionExited(string, session.ExitInfo, bool) {}
func (noopEvents) SessionFailed(string, error)                  {}

// terminal is the coordinator's record of one session. All fields are
// guarded by the coordinator's lock.
type terminal struct {
	id        string
	role      Role
	title     string
	command   string
	args      []string
	dir       string
	cols      uint16
	rows      uint16
	pid       int
	status    Status
	startedAt time.Time
	closing   bool
	scroll    *Scrollback
}

func (t *terminal) info() Info {
	return Info{
		ID:        t.id,
		Role:      t.role,
		Title:     t.title,
		Command:   t.command,
		Dir:       t.dir,
		Cols:      t.cols,
		Rows:      t.rows,
		PID:       t.pid,
		Status:    t.status,
		StartedAt: t.startedAt,
	}
}

// DefaultScrollbackLimit bounds per-session replay history.
const DefaultScrollbackLimit = 256 << 10

// Scrollback retains the tail of a session's output for replay when a
// client attaches mid-stream.
type Scrollback struct {
	mu    sync.Mutex
	data  []byte
	limit int
}

// NewScrollback creates a buffer keeping at most limit bytes. Non-positive
// limits select DefaultScrollbackLimit.
func NewScrollback(limit int) *Scrollback {
	if limit <= 0 {
		limit = DefaultScrollbackLimit
	}
	return &Scrollback{limit: limit}
}

// Write appends output, discarding the oldest bytes once over the limit.
func (s *Scrollback) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(p) >= s.limit {
		s.data = append(s.data[:0], p[len(p)-s.limit:]...)
		return
	}
	s.data = append(s.data, p...)
	if over := len(s.data) - s.limit; over > 0 {
		s.data = append(s.data[:0], s.data[over:]...)
	}
}

// Snapshot returns a copy of the retained output without clearing it.
func (s *Scrollback) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// Len returns the retained byte count.
func (s *Scrollback) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Reset discards everything retained.
func (s *Scrollback) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
}
