// Package main is the entry point for the termgrid server.
//
// The server manages PTY-backed terminal sessions and streams their
// output to WebSocket clients with batching and flow control.
//
// Architecture:
//
//	Client (WebSocket) → Hub → Lifecycle Coordinator → PTY Registry
//	                                                 → Process Tree Killer
//
// The server provides:
//   - WebSocket streaming for terminal I/O
//   - REST API for session inspection and profiles
//   - Scrollback replay on attach
//   - Optional session recording (gzip transcripts)
//   - Rate limiting and request logging
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML config file (-config, overrides env vars)
//   - CLI flags (override both)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 7070 -host 0.0.0.0
//
//	# With a config file
//	./server -config termgrid.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown (drains sessions, kills process trees)
package main
