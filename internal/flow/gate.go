// Package flow applies backpressure between PTY output and a consumer that
// acknowledges what it has processed.
//
// Each session gets a byte window: delivered-but-unacknowledged output.
// Crossing the high watermark pauses the source, draining below the low
// watermark resumes it. The spread between the two absorbs ack jitter so a
// consumer hovering near a single threshold cannot flap the source.
//
// Pause and resume are advisory commands to the upstream source; failures
// are logged and the window keeps tracking, because the source treats both
// as idempotent.
package flow

import (
	"sync"

	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/logging"
)

// Default watermarks, in bytes of unacknowledged output.
const (
	DefaultHighWatermark = 500000
	DefaultLowWatermark  = 50000
)

// Commander pauses and resumes an output source. Both calls are advisory
// and idempotent.
type Commander interface {
	Pause(id string) error
	Resume(id string) error
}

// Gate tracks per-session windows and trips the commander at the
// watermarks. Safe for concurrent use.
type Gate struct {
	high int
	low  int
	cmd  Commander
	log  *logging.Logger

	mu   sync.Mutex
	wins map[string]*window
}

type window struct {
	queued int
	paused bool
}

// NewGate creates a gate. Non-positive or inverted watermarks select the
// defaults.
func NewGate(high, low int, cmd Commander, log *logging.Logger) *Gate {
	if high <= 0 || low <= 0 || low >= high {
		high = DefaultHighWatermark
		low = DefaultLowWatermark
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &Gate{
		high: high,
		low:  low,
		cmd:  cmd,
		log:  log,
		wins: make(map[string]*window),
	}
}

// Sent records n delivered bytes for the session, pausing the source the
// moment the window reaches the high watermark. At most one pause is issued
// per crossing, no matter how many deliveries pile on top.
func (g *Gate) Sent(id string, n int) {
	if n <= 0 {
		return
	}

	g.mu.Lock()
	w, ok := g.wins[id]
	if !ok {
		w = &window{}
		g.wins[id] = w
	}
	w.queued += n
	trip := !w.paused && w.queued >= g.high
	if trip {
		w.paused = true
	}
	queued := w.queued
	g.mu.Unlock()

	if trip {
		g.log.Debug("output paused",
			zap.String("session_id", id),
			zap.Int("queued", queued),
		)
		if err := g.cmd.Pause(id); err != nil {
			g.log.Debug("pause command failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// Ack records n bytes the consumer finished processing, resuming the source
// once a paused window drains below the low watermark. At most one resume is
// issued per drain.
func (g *Gate) Ack(id string, n int) {
	if n <= 0 {
		return
	}

	g.mu.Lock()
	w, ok := g.wins[id]
	if !ok {
		g.mu.Unlock()
		return
	}
	w.queued -= n
	if w.queued < 0 {
		w.queued = 0
	}
	release := w.paused && w.queued < g.low
	if release {
		w.paused = false
	}
	queued := w.queued
	g.mu.Unlock()

	if release {
		g.log.Debug("output resumed",
			zap.String("session_id", id),
			zap.Int("queued", queued),
		)
		if err := g.cmd.Resume(id); err != nil {
			g.log.Debug("resume command failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// Drop forgets the session without touching the source. For sessions that
// have exited; there is nothing left to resume.
func (g *Gate) Drop(id string) {
	g.mu.Lock()
	delete(g.wins, id)
	g.mu.Unlock()
}

// Release forgets the session and resumes it if this gate had paused it.
// For consumers that go away mid-stream; without this, a session paused on
// behalf of a dead consumer would stay wedged.
func (g *Gate) Release(id string) {
	g.mu.Lock()
	w, ok := g.wins[id]
	paused := ok && w.paused
	delete(g.wins, id)
	g.mu.Unlock()

	if paused {
		if err := g.cmd.Resume(id); err != nil {
			g.log.Debug("resume command failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// ReleaseAll applies Release to every tracked session.
func (g *Gate) ReleaseAll() {
	g.mu.Lock()
	ids := make([]string, 0, len(g.wins))
	for id := range g.wins {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	for _, id := range ids {
		g.Release(id)
	}
}

// Queued returns the session's unacknowledged byte count.
func (g *Gate) Queued(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if w, ok := g.wins[id]; ok {
		return w.queued
	}
	return 0
}
