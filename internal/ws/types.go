package ws

import (
	"github.com/termgrid/termgrid/internal/lifecycle"
	"github.com/termgrid/termgrid/internal/session"
)

// ClientMessage is every request a client can send. Type selects the
// operation; the other fields apply per type.
type ClientMessage struct {
	Type    string            `json:"type"`
	ID      string            `json:"id,omitempty"`
	Profile string            `json:"profile,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Dir     string            `json:"cwd,omitempty"`
	Title   string            `json:"title,omitempty"`
	Role    string            `json:"role,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Cols    uint16            `json:"cols,omitempty"`
	Rows    uint16            `json:"rows,omitempty"`
	// Data carries input bytes for write, base64 on the wire.
	Data []byte `json:"data,omitempty"`
	// Bytes reports consumed output for ack.
	Bytes int `json:"bytes,omitempty"`
}

// ServerMessage is every notification the server can send.
type ServerMessage struct {
	Type      string           `json:"type"`
	ID        string           `json:"id,omitempty"`
	Session   *lifecycle.Info  `json:"session,omitempty"`
	Sessions  []lifecycle.Info `json:"sessions,omitempty"`
	Respawned bool             `json:"respawned,omitempty"`
	// Data carries output bytes, base64 on the wire.
	Data  []byte            `json:"data,omitempty"`
	Exit  *session.ExitInfo `json:"exit,omitempty"`
	Final bool              `json:"final,omitempty"`
	// Message carries error text.
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
