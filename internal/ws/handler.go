package ws

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/flow"
	"github.com/termgrid/termgrid/internal/lifecycle"
	"github.com/termgrid/termgrid/internal/logging"
	"github.com/termgrid/termgrid/internal/monitoring"
	"github.com/termgrid/termgrid/internal/profile"
	"github.com/termgrid/termgrid/internal/shared/id"
)

// maxInbound bounds a single client message, write payload included.
const maxInbound = 1 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Terminals is the session surface the handler drives. Pause and Resume
// double as the flow-control commander.
type Terminals interface {
	Spawn(req lifecycle.SpawnRequest) (lifecycle.Info, error)
	Write(id string, data []byte) error
	Resize(id string, cols, rows uint16) error
	Pause(id string) error
	Resume(id string) error
	Close(id string) error
	Get(id string) (lifecycle.Info, bool)
	List() []lifecycle.Info
	Scrollback(id string) []byte
}

// Config tunes per-connection flow control. Zero values select the flow
// package defaults.
type Config struct {
	HighWatermark int
	LowWatermark  int
}

// Handler upgrades connections and dispatches client messages.
type Handler struct {
	cfg      Config
	term     Terminals
	hub      *Hub
	profiles *profile.Store
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandler creates a WebSocket handler. profiles and metrics may be nil.
func NewHandler(cfg Config, term Terminals, hub *Hub, profiles *profile.Store, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	if profiles == nil {
		profiles = profile.Empty()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		cfg:      cfg,
		term:     term,
		hub:      hub,
		profiles: profiles,
		metrics:  metrics,
		log:      log,
	}
}

// HandleConnection handles WebSocket upgrade and messages.
func (h *Handler) HandleConnection(gc *gin.Context) {
	conn, err := upgrader.Upgrade(gc.Writer, gc.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:      uuid.NewString(),
		conn:    conn,
		metrics: h.metrics,
		log:     h.log,
	}
	cl.gate = flow.NewGate(h.cfg.HighWatermark, h.cfg.LowWatermark, h.term, h.log)

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.log.Info("Client connected",
		zap.String("conn_id", cl.id),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	defer func() {
		h.hub.DetachAll(cl)
		cl.gate.ReleaseAll()
		conn.Close()
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
		h.log.Info("Client disconnected", zap.String("conn_id", cl.id))
	}()

	conn.SetReadLimit(maxInbound)

	// Greet with the current session list so the client can reattach.
	cl.send(ServerMessage{Type: "sessions", Sessions: h.term.List()})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("WebSocket read error", zap.String("conn_id", cl.id), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			cl.sendError("", "malformed message")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}
		h.dispatch(cl, msg)
	}
}

func (h *Handler) dispatch(cl *client, msg ClientMessage) {
	switch msg.Type {
	case "spawn":
		h.handleSpawn(cl, msg)
	case "write":
		h.handleWrite(msg)
	case "resize":
		if err := h.term.Resize(msg.ID, msg.Cols, msg.Rows); err != nil {
			h.log.Debug("Resize failed", zap.String("session_id", msg.ID), zap.Error(err))
		}
	case "ack":
		cl.gate.Ack(msg.ID, msg.Bytes)
	case "close":
		if err := h.term.Close(msg.ID); err != nil {
			h.log.Debug("Close failed", zap.String("session_id", msg.ID), zap.Error(err))
		}
	case "attach":
		h.handleAttach(cl, msg)
	case "detach":
		if h.hub.Detach(msg.ID, cl) {
			cl.gate.Release(msg.ID)
		}
	case "list":
		cl.send(ServerMessage{Type: "sessions", Sessions: h.term.List()})
	case "ping":
		cl.send(ServerMessage{Type: "pong"})
	default:
		cl.sendError(msg.ID, "unknown message type")
	}
}

func (h *Handler) handleSpawn(cl *client, msg ClientMessage) {
	timer := monitoring.NewTimer(h.metrics, "ws", "spawn")

	req := lifecycle.SpawnRequest{
		ID:      msg.ID,
		Role:    lifecycle.Role(msg.Role),
		Title:   msg.Title,
		Command: msg.Command,
		Args:    msg.Args,
		Dir:     msg.Dir,
		Env:     msg.Env,
		Cols:    msg.Cols,
		Rows:    msg.Rows,
	}
	if msg.Profile != "" {
		p, ok := h.profiles.Get(msg.Profile)
		if !ok {
			timer.Stop("error")
			cl.sendError(msg.ID, fmt.Sprintf("unknown profile %q", msg.Profile))
			return
		}
		req = applyProfile(req, p)
	}
	if req.ID == "" {
		req.ID = string(id.NewSessionID())
	}

	// Attach before spawning so the spawned event has a route. Claim
	// refuses ids owned by another connection.
	ok, fresh := h.hub.Claim(req.ID, cl)
	if !ok {
		timer.Stop("error")
		cl.sendError(req.ID, "session already exists")
		return
	}

	if _, err := h.term.Spawn(req); err != nil {
		if fresh {
			h.hub.Detach(req.ID, cl)
		}
		timer.Stop("error")
		cl.sendError(req.ID, err.Error())
		return
	}
	timer.Stop("ok")
}

// handleWrite forwards input. A missing session is not an error worth
// telling the client about; it raced a close.
func (h *Handler) handleWrite(msg ClientMessage) {
	if len(msg.Data) == 0 {
		return
	}
	if err := h.term.Write(msg.ID, msg.Data); err != nil {
		h.log.Debug("Write to missing session", zap.String("session_id", msg.ID), zap.Error(err))
	}
}

func (h *Handler) handleAttach(cl *client, msg ClientMessage) {
	info, ok := h.term.Get(msg.ID)
	if !ok {
		cl.sendError(msg.ID, "session not found")
		return
	}

	h.hub.Attach(msg.ID, cl)
	cl.send(ServerMessage{Type: "attached", ID: msg.ID, Session: &info})
	if snap := h.term.Scrollback(msg.ID); len(snap) > 0 {
		cl.sendOutput(msg.ID, snap)
	}
}

// applyProfile fills empty request fields from the profile. Client fields
// win; command and args travel together so args never cross commands.
func applyProfile(req lifecycle.SpawnRequest, p profile.Profile) lifecycle.SpawnRequest {
	if req.Command == "" {
		req.Command = p.Command
		if len(req.Args) == 0 {
			req.Args = p.Args
		}
	}
	if req.Title == "" {
		req.Title = p.Title
		if req.Title == "" {
			req.Title = p.Name
		}
	}
	if req.Role == "" {
		req.Role = lifecycle.Role(p.Role)
	}
	if req.Dir == "" {
		req.Dir = p.Dir
	}
	if req.Cols == 0 {
		req.Cols = p.Cols
	}
	if req.Rows == 0 {
		req.Rows = p.Rows
	}
	if len(p.Env) > 0 {
		merged := make(map[string]string, len(p.Env)+len(req.Env))
		for k, v := range p.Env {
			merged[k] = v
		}
		for k, v := range req.Env {
			merged[k] = v
		}
		req.Env = merged
	}
	return req
}
