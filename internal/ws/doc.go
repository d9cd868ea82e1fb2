// Package ws provides WebSocket transport for terminal sessions.
//
// One connection multiplexes any number of sessions. A session is attached
// to at most one connection at a time; sessions keep running, and their
// scrollback keeps accumulating, while nobody is attached.
//
// Features:
//   - Session spawn, input, and resize over a single socket
//   - Coalesced output frames with base64 payloads
//   - Watermark flow control with pause/resume per session
//   - Detach and reattach with scrollback replay
//   - Spawn from named launch profiles
//
// Message Types (Client → Server):
//   - spawn: Start a session, optionally from a profile
//   - write: Send input bytes to a session
//   - resize: Change terminal geometry
//   - ack: Report consumed output bytes for flow control
//   - close: Terminate a session
//   - attach: Take over a session and replay its scrollback
//   - detach: Stop receiving a session's output
//   - list: Request the session list
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - spawned: Session is running, also sent when a shell replaces an agent
//   - attached: Attach completed, scrollback replay follows
//   - output: One coalesced frame of session output
//   - exit: Process exited, final=true retires the id
//   - sessions: Session list
//   - error: Operation failed
//   - pong: Keep-alive reply
//
// Example Usage:
//
//	hub := ws.NewHub(logger)
//	handler := ws.NewHandler(ws.Config{}, coord, hub, profiles, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
