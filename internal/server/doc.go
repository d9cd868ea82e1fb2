// Package server provides HTTP server setup and initialization for termgrid.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (request ids, logging, metrics, CORS, rate limiting, recovery)
//   - PTY session registry and lifecycle coordinator
//   - WebSocket hub and handler
//   - Launch profiles and transcript recording
//
// Server Lifecycle:
//  1. Load configuration from environment/flags/file
//  2. Initialize logger (production or development)
//  3. Probe the login shell environment
//  4. Load launch profiles and set up recording
//  5. Wire the coordinator, hub, and handlers
//  6. Setup HTTP routes and middleware
//  7. Start HTTP server
//  8. Graceful shutdown on signal
//
// Features:
//   - Configuration-driven setup
//   - Graceful shutdown draining every session
//   - Resource cleanup on exit
//   - Health check and metrics endpoints
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
