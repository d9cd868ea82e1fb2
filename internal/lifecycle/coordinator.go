package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/logging"
	"github.com/termgrid/termgrid/internal/relay"
	"github.com/termgrid/termgrid/internal/session"
)

// SpawnRequest describes a session to create.
type SpawnRequest struct {
	// ID must be unique among live sessions.
	ID string
	// Role defaults to RoleAgent when Command is set, RoleShell otherwise.
	Role Role
	// Title defaults to the command's base name.
	Title string
	// Command defaults to the coordinator's shell; an empty command forces
	// the shell role.
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
	Cols    uint16
	Rows    uint16
}

// Coordinator owns session lifecycles on top of a PTY registry. It is safe
// for concurrent use.
type Coordinator struct {
	reg   Registry
	trees TreeKiller
	shell func() string
	batch *relay.Batcher
	ev    Events
	stats Stats
	log   *logging.Logger

	scrollLimit int
	killTimeout time.Duration

	mu    sync.Mutex
	terms map[string]*terminal
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	// Registry backs sessions with PTY processes. Required.
	Registry Registry
	// Trees cleans up descendants on close. Nil skips tree cleanup.
	Trees TreeKiller
	// Events receives notifications. Nil discards them.
	Events Events
	// Shell resolves the command for shell-role sessions. Nil uses the
	// platform default.
	Shell func() string
	// Stats counts activity. Optional.
	Stats Stats
	// FlushInterval is the output frame interval. Zero selects the relay
	// default.
	FlushInterval time.Duration
	// ScrollbackLimit bounds per-session replay history in bytes.
	ScrollbackLimit int
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg CoordinatorConfig, log *logging.Logger) *Coordinator {
	if cfg.Events == nil {
		cfg.Events = noopEvents{}
	}
	if cfg.Shell == nil {
		cfg.Shell = session.DefaultShell
	}
	if cfg.ScrollbackLimit <= 0 {
		cfg.ScrollbackLimit = DefaultScrollbackLimit
	}
	if log == nil {
		log = logging.NewDefault()
	}
	c := &Coordinator{
		reg:         cfg.Registry,
		trees:       cfg.Trees,
		shell:       cfg.Shell,
		ev:          cfg.Events,
		stats:       cfg.Stats,
		log:         log,
		scrollLimit: cfg.ScrollbackLimit,
		killTimeout: 2 * time.Second,
		terms:       make(map[string]*terminal),
	}
	c.batch = relay.NewBatcher(cfg.FlushInterval, c.deliver)
	return c
}

// Spawn creates a session. The id is reserved before the process starts, so
// concurrent spawns of the same id see exactly one winner; a spawn failure
// releases the id again.
func (c *Coordinator) Spawn(req SpawnRequest) (Info, error) {
	if req.ID == "" {
		return Info{}, fmt.Errorf("session id required")
	}

	role := req.Role
	command := req.Command
	if command == "" {
		command = c.shell()
		role = RoleShell
	}
	if role != RoleShell && role != RoleAgent {
		role = RoleAgent
	}
	title := req.Title
	if title == "" {
		title = filepath.Base(command)
	}

	term := &terminal{
		id:        req.ID,
		role:      role,
		title:     title,
		command:   command,
		args:      req.Args,
		dir:       req.Dir,
		cols:      req.Cols,
		rows:      req.Rows,
		status:    StatusSpawning,
		startedAt: time.Now(),
		scroll:    NewScrollback(c.scrollLimit),
	}

	c.mu.Lock()
	if _, exists := c.terms[req.ID]; exists {
		c.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %s", session.ErrExists, req.ID)
	}
	c.terms[req.ID] = term
	c.mu.Unlock()

	info, err := c.startProcess(term, req.Env)
	if err != nil {
		c.mu.Lock()
		delete(c.terms, req.ID)
		c.mu.Unlock()
		return Info{}, err
	}

	c.mu.Lock()
	stale := term.closing
	c.mu.Unlock()
	if stale {
		// A close raced the spawn; the exit that follows is already final.
		c.reg.Close(req.ID)
	}

	c.ev.SessionSpawned(info, false)
	return info, nil
}

// startProcess attaches a PTY process to an already reserved terminal.
func (c *Coordinator) startProcess(term *terminal, env map[string]string) (Info, error) {
	c.mu.Lock()
	spec := session.SpawnSpec{
		ID:      term.id,
		Command: term.command,
		Args:    term.args,
		Dir:     term.dir,
		Env:     env,
		Cols:    term.cols,
		Rows:    term.rows,
		OnData:  c.batch.Add,
		OnExit:  c.handleExit,
	}
	role := term.role
	c.mu.Unlock()

	res, err := c.reg.Spawn(spec)
	if err != nil {
		return Info{}, err
	}

	c.mu.Lock()
	term.pid = res.PID
	term.dir = res.Dir
	term.status = StatusRunning
	info := term.info()
	c.mu.Unlock()

	c.recordSpawn(role)
	c.log.Info("session started",
		zap.String("session_id", info.ID),
		zap.String("role", string(info.Role)),
		zap.String("command", info.Command),
		zap.Int("pid", info.PID),
	)
	return info, nil
}

// deliver is the batcher's flush callback: one coalesced frame per call,
// frames for one session never overlapping.
func (c *Coordinator) deliver(id string, data []byte) {
	c.mu.Lock()
	if term, ok := c.terms[id]; ok {
		term.scroll.Write(data)
	}
	c.mu.Unlock()

	c.recordOutput(len(data))
	c.ev.SessionOutput(id, data)
}

// handleExit runs on the registry's exit notification. By contract the
// registry entry is already released, which is what lets the respawn reuse
// the id.
func (c *Coordinator) handleExit(id string, exit session.ExitInfo) {
	// Flush queued output first so nobody observes the exit ahead of the
	// process's final bytes.
	c.batch.Close(id)

	c.mu.Lock()
	term, ok := c.terms[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	respawn := term.role != RoleShell && !term.closing
	role := term.role
	if respawn {
		term.status = StatusSpawning
	} else {
		term.status = StatusExited
		delete(c.terms, id)
	}
	c.mu.Unlock()

	c.recordExit(role)
	c.ev.SessionExited(id, exit, !respawn)

	if !respawn {
		c.log.Info("session retired",
			zap.String("session_id", id),
			zap.String("role", string(role)),
			zap.Int("exit_code", exit.Code),
			zap.String("signal", exit.Signal),
		)
		return
	}

	// The agent's command is done; hand the terminal back to a shell in
	// the same working directory.
	shell := c.shell()
	c.mu.Lock()
	term.role = RoleShell
	term.command = shell
	term.args = nil
	term.title = filepath.Base(shell)
	term.startedAt = time.Now()
	term.scroll.Reset()
	c.mu.Unlock()

	info, err := c.startProcess(term, nil)
	if err != nil {
		c.mu.Lock()
		delete(c.terms, id)
		c.mu.Unlock()
		c.log.Error("respawn failed, retiring session",
			zap.String("session_id", id),
			zap.Error(err),
		)
		c.ev.SessionFailed(id, fmt.Errorf("respawn shell: %w", err))
		return
	}

	c.mu.Lock()
	stale := term.closing
	c.mu.Unlock()
	if stale {
		// A close raced the respawn; take the fresh shell down again.
		c.reg.Close(id)
		return
	}

	c.ev.SessionSpawned(info, true)
}

// Write forwards input bytes to the session.
func (c *Coordinator) Write(id string, data []byte) error {
	return c.reg.Write(id, data)
}

// Resize updates the session's window dimensions.
func (c *Coordinator) Resize(id string, cols, rows uint16) error {
	if err := c.reg.Resize(id, cols, rows); err != nil {
		return err
	}
	c.mu.Lock()
	if term, ok := c.terms[id]; ok && cols > 0 && rows > 0 {
		term.cols, term.rows = cols, rows
	}
	c.mu.Unlock()
	return nil
}

// Pause stops the session's output from advancing. Advisory and idempotent;
// unknown ids are a no-op.
func (c *Coordinator) Pause(id string) error {
	if err := c.reg.Pause(id); err != nil {
		return err
	}
	c.setFlowStatus(id, StatusRunning, StatusPaused)
	return nil
}

// Resume restarts a paused session's output. Advisory and idempotent.
func (c *Coordinator) Resume(id string) error {
	if err := c.reg.Resume(id); err != nil {
		return err
	}
	c.setFlowStatus(id, StatusPaused, StatusRunning)
	return nil
}

func (c *Coordinator) setFlowStatus(id string, from, to Status) {
	c.mu.Lock()
	if term, ok := c.terms[id]; ok && term.status == from {
		term.status = to
	}
	c.mu.Unlock()
}

// Close tears the session down for good: descendants first, then the root
// via the registry. Idempotent; unknown ids are a no-op.
func (c *Coordinator) Close(id string) error {
	c.mu.Lock()
	term, ok := c.terms[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	term.closing = true
	pid := term.pid
	c.mu.Unlock()

	c.killDescendants(context.Background(), pid)
	return c.reg.Close(id)
}

// Shutdown closes every session and waits for their exits to settle or the
// context to give up.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.mu.Lock()
	pids := make([]int, 0, len(c.terms))
	for _, term := range c.terms {
		term.closing = true
		pids = append(pids, term.pid)
	}
	c.mu.Unlock()

	for _, pid := range pids {
		c.killDescendants(ctx, pid)
	}
	c.reg.CloseAll()

	for c.reg.Count() > 0 {
		select {
		case <-ctx.Done():
			c.log.Warn("shutdown timed out with sessions remaining",
				zap.Int("remaining", c.reg.Count()),
			)
			c.batch.CloseAll()
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	c.batch.CloseAll()
}

func (c *Coordinator) killDescendants(ctx context.Context, pid int) {
	if c.trees == nil || pid <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.killTimeout)
	defer cancel()
	c.trees.KillDescendants(ctx, pid)
}

// Get returns the session's current view.
func (c *Coordinator) Get(id string) (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	term, ok := c.terms[id]
	if !ok {
		return Info{}, false
	}
	return term.info(), true
}

// List returns every live session, oldest first.
func (c *Coordinator) List() []Info {
	c.mu.Lock()
	out := make([]Info, 0, len(c.terms))
	for _, term := range c.terms {
		out = append(out, term.info())
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Scrollback returns a copy of the session's retained output.
func (c *Coordinator) Scrollback(id string) []byte {
	c.mu.Lock()
	term, ok := c.terms[id]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return term.scroll.Snapshot()
}

func (c *Coordinator) recordSpawn(role Role) {
	if c.stats != nil {
		c.stats.RecordSpawn(string(role))
	}
}

func (c *Coordinator) recordExit(role Role) {
	if c.stats != nil {
		c.stats.RecordExit(string(role))
	}
}

func (c *Coordinator) recordOutput(n int) {
	if c.stats != nil {
		c.stats.RecordOutput(n)
	}
}
