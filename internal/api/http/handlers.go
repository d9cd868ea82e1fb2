// Package http provides the REST surface over sessions and profiles.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/termgrid/termgrid/internal/lifecycle"
	"github.com/termgrid/termgrid/internal/monitoring"
	"github.com/termgrid/termgrid/internal/profile"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Terminals is the session surface the REST handlers read and close.
type Terminals interface {
	Close(id string) error
	Get(id string) (lifecycle.Info, bool)
	List() []lifecycle.Info
	Scrollback(id string) []byte
}

// Handlers serves the REST endpoints.
type Handlers struct {
	term     Terminals
	profiles *profile.Store
	metrics  *monitoring.Metrics
	started  time.Time
}

// NewHandlers creates the REST handlers. profiles and metrics may be nil.
func NewHandlers(term Terminals, profiles *profile.Store, metrics *monitoring.Metrics) *Handlers {
	if profiles == nil {
		profiles = profile.Empty()
	}
	return &Handlers{
		term:     term,
		profiles: profiles,
		metrics:  metrics,
		started:  time.Now(),
	}
}

// Root reports service identity
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "termgrid",
		"version": Version,
	})
}

// Health reports liveness and activity counters
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":         "healthy",
		"sessions":       len(h.term.List()),
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.GetSnapshot()
	}
	c.JSON(http.StatusOK, body)
}

// ListSessions returns every live session
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.term.List()})
}

// GetSession returns one session by id
func (h *Handlers) GetSession(c *gin.Context) {
	info, ok := h.term.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetScrollback returns the session's buffered output, raw bytes with
// escape sequences intact
func (h *Handlers) GetScrollback(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.term.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", h.term.Scrollback(id))
}

// CloseSession terminates a session
func (h *Handlers) CloseSession(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.term.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err := h.term.Close(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": id,
	})
}

// ListProfiles returns the launch profiles
func (h *Handlers) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": h.profiles.List()})
}
