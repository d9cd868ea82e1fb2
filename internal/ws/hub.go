package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/lifecycle"
	"github.com/termgrid/termgrid/internal/logging"
	"github.com/termgrid/termgrid/internal/session"
)

// Hub routes lifecycle events to the connection attached to each session.
// Events for unattached sessions are dropped; scrollback covers the gap
// until someone attaches.
type Hub struct {
	log *logging.Logger

	mu       sync.RWMutex
	attached map[string]*client
}

var _ lifecycle.Events = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.NewNop()
	}
	return &Hub{log: log, attached: make(map[string]*client)}
}

// Attach binds a session to a client, displacing any previous client
// silently. The displaced client's flow window is released so the session
// cannot stay paused on its account.
func (h *Hub) Attach(sessID string, c *client) {
	h.mu.Lock()
	prev := h.attached[sessID]
	h.attached[sessID] = c
	h.mu.Unlock()

	if prev != nil && prev != c {
		prev.gate.Release(sessID)
		h.log.Debug("Session reattached",
			zap.String("session_id", sessID),
			zap.String("conn_id", c.id),
		)
	}
}

// Claim attaches a session to a client unless another client owns it.
// fresh reports whether a new binding was created, so a failed spawn can
// roll back without touching a pre-existing attachment.
func (h *Hub) Claim(sessID string, c *client) (ok, fresh bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.attached[sessID] {
	case c:
		return true, false
	case nil:
		h.attached[sessID] = c
		return true, true
	default:
		return false, false
	}
}

// Detach removes the binding if sessID is attached to c.
func (h *Hub) Detach(sessID string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attached[sessID] != c {
		return false
	}
	delete(h.attached, sessID)
	return true
}

// DetachAll removes every binding held by c. Called on disconnect; the
// caller releases the client's flow windows afterwards.
func (h *Hub) DetachAll(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for sessID, owner := range h.attached {
		if owner == c {
			delete(h.attached, sessID)
			n++
		}
	}
	return n
}

// Attached reports whether any client is bound to the session.
func (h *Hub) Attached(sessID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.attached[sessID] != nil
}

func (h *Hub) owner(sessID string) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.attached[sessID]
}

// ==============================
// Lifecycle Events
// ==============================

// SessionSpawned tells the attached client its session is running.
func (h *Hub) SessionSpawned(info lifecycle.Info, respawned bool) {
	if c := h.owner(info.ID); c != nil {
		c.send(ServerMessage{Type: "spawned", ID: info.ID, Session: &info, Respawned: respawned})
	}
}

// SessionOutput forwards one frame to the attached client and charges its
// flow window.
func (h *Hub) SessionOutput(sessID string, data []byte) {
	if c := h.owner(sessID); c != nil {
		c.sendOutput(sessID, data)
	}
}

// SessionExited reports the exit. A final exit retires the binding and
// drops the flow window; a non-final exit precedes a respawn under the
// same id, so the binding survives.
func (h *Hub) SessionExited(sessID string, exit session.ExitInfo, final bool) {
	h.mu.Lock()
	c := h.attached[sessID]
	if final && c != nil {
		delete(h.attached, sessID)
	}
	h.mu.Unlock()

	if c == nil {
		return
	}
	c.send(ServerMessage{Type: "exit", ID: sessID, Exit: &exit, Final: final})
	if final {
		c.gate.Drop(sessID)
	}
}

// SessionFailed reports a failed respawn and retires the binding.
func (h *Hub) SessionFailed(sessID string, err error) {
	h.mu.Lock()
	c := h.attached[sessID]
	if c != nil {
		delete(h.attached, sessID)
	}
	h.mu.Unlock()

	if c == nil {
		return
	}
	c.sendError(sessID, err.Error())
	c.gate.Drop(sessID)
}
