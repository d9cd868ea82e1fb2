// Package lifecycle coordinates terminal sessions from spawn to retirement.
//
// Each session carries a role. A shell session is the user's interactive
// prompt: when it exits, the session is over and the id retires. An agent
// session runs a specific command: when that command finishes, the terminal
// does not die with it. The exit is surfaced, then a fresh shell is spawned
// under the same id in the same working directory, and the session carries
// on with the shell role.
//
// The coordinator also owns per-session scrollback for reattaching clients,
// frame batching for output delivery, and descendant cleanup on close.
//
// State model:
//
//	Spawning -> Running <-> Paused -> Exited
//
// Running and Paused flip under flow control. Exited is terminal for shell
// sessions and for any session closed on purpose; agent exits loop back to
// Spawning for the replacement shell.
package lifecycle
