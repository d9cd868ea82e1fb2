package proctree

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/logging"
)

// DefaultGrace is how long terminated descendants get to exit cleanly before
// survivors are force-killed.
const DefaultGrace = 200 * time.Millisecond

// Lister enumerates the direct children of a pid.
type Lister interface {
	Children(ctx context.Context, pid int) ([]int, error)
}

// signaler sends platform signals to a single pid.
type signaler interface {
	Term(pid int) error
	Kill(pid int) error
	Alive(pid int) bool
}

// Terminator walks a process tree and kills everything below the root.
type Terminator struct {
	lister Lister
	sig    signaler
	grace  time.Duration
	log    *logging.Logger
}

// TerminatorConfig configures a Terminator.
type TerminatorConfig struct {
	// Lister enumerates children. Nil selects the native platform lister.
	Lister Lister
	// Grace is the delay between TERM and KILL. Zero selects DefaultGrace;
	// negative disables the KILL escalation.
	Grace time.Duration
}

// NewTerminator creates a tree terminator.
func NewTerminator(cfg TerminatorConfig, log *logging.Logger) *Terminator {
	if cfg.Lister == nil {
		cfg.Lister = NewLister()
	}
	if cfg.Grace == 0 {
		cfg.Grace = DefaultGrace
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &Terminator{
		lister: cfg.Lister,
		sig:    nativeSignaler{},
		grace:  cfg.Grace,
		log:    log,
	}
}

// Descendants returns every process below pid, breadth-first. A listing
// failure mid-walk returns what was found so far along with the error.
func (t *Terminator) Descendants(ctx context.Context, pid int) ([]int, error) {
	var out []int
	seen := map[int]bool{pid: true}
	queue := []int{pid}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		children, err := t.lister.Children(ctx, next)
		if err != nil {
			return out, err
		}
		for _, child := range children {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, nil
}

// KillDescendants terminates everything below pid, leaving pid itself alone.
// Returns how many pids were signaled. All per-pid failures are tolerated;
// the listed process may simply have beaten us to the grave.
func (t *Terminator) KillDescendants(ctx context.Context, pid int) int {
	pids, err := t.Descendants(ctx, pid)
	if err != nil {
		t.log.Warn("descendant listing incomplete",
			zap.Int("pid", pid),
			zap.Int("found", len(pids)),
			zap.Error(err),
		)
	}
	if len(pids) == 0 {
		return 0
	}

	for _, p := range pids {
		if err := t.sig.Term(p); err != nil {
			t.log.Debug("term failed", zap.Int("pid", p), zap.Error(err))
		}
	}

	if t.grace < 0 {
		return len(pids)
	}
	select {
	case <-time.After(t.grace):
	case <-ctx.Done():
	}

	for _, p := range pids {
		if !t.sig.Alive(p) {
			continue
		}
		if err := t.sig.Kill(p); err != nil {
			t.log.Debug("kill failed", zap.Int("pid", p), zap.Error(err))
		}
	}

	t.log.Debug("descendants terminated",
		zap.Int("pid", pid),
		zap.Int("count", len(pids)),
	)
	return len(pids)
}
