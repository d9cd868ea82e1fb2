package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/flow"
	"github.com/termgrid/termgrid/internal/logging"
	"github.com/termgrid/termgrid/internal/monitoring"
)

const writeTimeout = 10 * time.Second

// client is one WebSocket connection and its flow-control state.
type client struct {
	id      string
	conn    *websocket.Conn
	gate    *flow.Gate
	metrics *monitoring.Metrics
	log     *logging.Logger

	// mu serializes writes; lifecycle events and the read loop both send.
	mu sync.Mutex
}

func (c *client) send(msg ServerMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	buf, err := sonic.Marshal(msg)
	if err != nil {
		c.log.Error("Marshal failed", zap.String("type", msg.Type), zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", msg.Type)
	}
	return nil
}

// sendOutput delivers one frame and charges it to the session's flow
// window. Undelivered frames are not charged.
func (c *client) sendOutput(sessID string, data []byte) {
	if err := c.send(ServerMessage{Type: "output", ID: sessID, Data: data}); err != nil {
		return
	}
	c.gate.Sent(sessID, len(data))
}

func (c *client) sendError(sessID, message string) {
	c.send(ServerMessage{Type: "error", ID: sessID, Message: message})
}
