// Package session owns pseudo-terminal backed child processes, one per
// session id.
//
// The Registry is the sole owner of PTY and process handles: it spawns,
// tracks, and terminates them, and is the only code path permitted to do so.
// Output is delivered through per-session callbacks driven by a dedicated
// reader goroutine; exit is reported exactly once, after the final output
// chunk, at which point the id is free for reuse.
//
// Features:
//   - One PTY process per session id, rejected spawn on a live id
//   - Pause/resume gating of the output pump without touching the process
//   - Working directory validation with home-directory fallback
//   - Cached login-environment probe so spawned commands resolve user tools
//   - Idempotent close and best-effort CloseAll for shutdown
//
// Architecture:
//   - Factory abstracts the native PTY layer (creack/pty in production,
//     fakes in tests); the Registry never touches exec.Cmd directly
//   - A reader pump per session forwards output; a monitor goroutine waits
//     for process exit, releases resources, then fires the exit callback
//   - Operations against the same id are serialized; distinct ids may be
//     spawned concurrently
package session
