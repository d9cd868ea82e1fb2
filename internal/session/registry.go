package session

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/termgrid/termgrid/internal/logging"
)

// Sentinel errors for callers that need to distinguish benign failures.
var (
	// ErrNotFound means the operation referenced an id with no live session.
	// Callers treat this as non-fatal; the session likely already exited.
	ErrNotFound = errors.New("session not found")

	// ErrExists means a spawn referenced an id that is already live.
	ErrExists = errors.New("session already exists")
)

// SpawnSpec describes one session to create.
type SpawnSpec struct {
	ID      string
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
	Cols    uint16
	Rows    uint16
	OnData  DataFunc
	OnExit  ExitFunc
}

// SpawnResult reports what a successful spawn produced.
type SpawnResult struct {
	ID  string
	Dir string
	PID int
}

// Info is the public representation of a tracked session.
type Info struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Dir     string `json:"dir"`
	Cols    uint16 `json:"cols"`
	Rows    uint16 `json:"rows"`
	PID     int    `json:"pid"`
}

// Registry owns PTY-backed child processes, one per session id. It is safe
// for concurrent use; operations against the same id are serialized by the
// session's own lock.
type Registry struct {
	factory Factory
	env     *EnvProber
	log     *logging.Logger

	defaultCols uint16
	defaultRows uint16

	sessions sync.Map // map[string]*session
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Factory creates PTY handles. Nil selects the native factory.
	Factory Factory
	// EnvProber resolves the login environment. Nil disables probing and
	// spawns with the ambient environment.
	EnvProber *EnvProber
	// DefaultCols and DefaultRows apply when a spawn omits dimensions.
	DefaultCols uint16
	DefaultRows uint16
}

// NewRegistry creates a session registry.
func NewRegistry(cfg RegistryConfig, log *logging.Logger) *Registry {
	if cfg.Factory == nil {
		cfg.Factory = DefaultFactory()
	}
	if cfg.DefaultCols == 0 {
		cfg.DefaultCols = 80
	}
	if cfg.DefaultRows == 0 {
		cfg.DefaultRows = 24
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &Registry{
		factory:     cfg.Factory,
		env:         cfg.EnvProber,
		log:         log,
		defaultCols: cfg.DefaultCols,
		defaultRows: cfg.DefaultRows,
	}
}

// Spawn creates and tracks exactly one PTY process for the given id. An
// invalid working directory falls back to the user's home. Spawn failure is
// reported synchronously and registers nothing. A live id is rejected.
func (r *Registry) Spawn(spec SpawnSpec) (SpawnResult, error) {
	if spec.ID == "" {
		return SpawnResult{}, fmt.Errorf("session id required")
	}
	if spec.Command == "" {
		return SpawnResult{}, fmt.Errorf("command required")
	}

	cols, rows := spec.Cols, spec.Rows
	if cols == 0 {
		cols = r.defaultCols
	}
	if rows == 0 {
		rows = r.defaultRows
	}

	dir := resolveDir(spec.Dir)
	env := r.buildEnv(dir, spec.Env)

	h, err := r.factory.Spawn(spec.Command, spec.Args, dir, env, cols, rows)
	if err != nil {
		return SpawnResult{}, fmt.Errorf("spawn %s: %w", spec.Command, err)
	}

	s := newSession(spec.ID, spec.Command, dir, cols, rows, h, spec.OnData, spec.OnExit)
	if s.onData == nil {
		s.onData = func(string, []byte) {}
	}

	if _, loaded := r.sessions.LoadOrStore(spec.ID, s); loaded {
		h.Kill()
		h.Close()
		return SpawnResult{}, fmt.Errorf("%w: %s", ErrExists, spec.ID)
	}

	go s.pump()
	go s.monitor(r)

	r.log.Info("session spawned",
		zap.String("session_id", spec.ID),
		zap.String("command", spec.Command),
		zap.String("dir", dir),
		zap.Int("pid", h.Pid()),
	)

	return SpawnResult{ID: spec.ID, Dir: dir, PID: h.Pid()}, nil
}

// Write forwards raw bytes to the session's input stream.
func (r *Registry) Write(id string, data []byte) error {
	s, ok := r.lookup(id)
	if !ok || s.isClosed() {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := s.handle.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

// Resize updates the PTY window size and tracked dimensions. Unknown ids and
// non-positive dimensions are ignored.
func (r *Registry) Resize(id string, cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return nil
	}
	s, ok := r.lookup(id)
	if !ok || s.isClosed() {
		return nil
	}
	s.setDimensions(cols, rows)
	if err := s.handle.Resize(cols, rows); err != nil {
		return fmt.Errorf("resize %s: %w", id, err)
	}
	return nil
}

// Pause suspends output delivery without touching the process. No-op on
// unknown ids; idempotent.
func (r *Registry) Pause(id string) error {
	s, ok := r.lookup(id)
	if !ok {
		return nil
	}
	s.pause()
	r.log.Debug("session paused", zap.String("session_id", id))
	return nil
}

// Resume continues output delivery. No-op on unknown ids; idempotent.
func (r *Registry) Resume(id string) error {
	s, ok := r.lookup(id)
	if !ok {
		return nil
	}
	s.resume()
	r.log.Debug("session resumed", zap.String("session_id", id))
	return nil
}

// Close terminates the session's process and releases its resources.
// Idempotent: closing an unknown or already-closed id is a no-op.
func (r *Registry) Close(id string) error {
	s, ok := r.lookup(id)
	if !ok {
		return nil
	}
	s.close()
	return nil
}

// CloseAll terminates every tracked session, best-effort. It iterates a
// snapshot, so sessions registered mid-shutdown are not visited. Failures
// are swallowed per id so one stuck session cannot block the rest.
func (r *Registry) CloseAll() {
	var ids []string
	r.sessions.Range(func(key, _ interface{}) bool {
		ids = append(ids, key.(string))
		return true
	})

	g := new(errgroup.Group)
	g.SetLimit(8)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := r.Close(id); err != nil {
				r.log.Warn("close failed during shutdown",
					zap.String("session_id", id),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	g.Wait()
}

// Count reports how many sessions are currently tracked.
func (r *Registry) Count() int {
	n := 0
	r.sessions.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// List returns a snapshot of tracked sessions.
func (r *Registry) List() []Info {
	var out []Info
	r.sessions.Range(func(_, value interface{}) bool {
		s := value.(*session)
		cols, rows := s.dimensions()
		out = append(out, Info{
			ID:      s.id,
			Command: s.command,
			Dir:     s.dir,
			Cols:    cols,
			Rows:    rows,
			PID:     s.handle.Pid(),
		})
		return true
	})
	return out
}

func (r *Registry) lookup(id string) (*session, bool) {
	value, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*session), true
}

// buildEnv merges the cached login environment with per-session overrides.
func (r *Registry) buildEnv(dir string, overrides map[string]string) []string {
	var base []string
	if r.env != nil {
		base = r.env.Environ()
	} else {
		base = os.Environ()
	}

	merged := map[string]string{
		"TERM": "xterm-256color",
		"PWD":  dir,
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return mergeEnv(base, merged)
}

// resolveDir validates the requested working directory, substituting the
// user's home when it does not exist or is not a directory.
func resolveDir(dir string) string {
	if dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return dir
		}
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return os.TempDir()
}
