// Package config provides 12-factor configuration for the terminal server.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional YAML file, passed on the command line, overrides both; a
// partial file only touches the keys it names.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Session: shell selection, default PTY dimensions, env probe timeout
//   - Flow: output backpressure watermarks
//   - Relay: output frame interval
//   - Scrollback: per-session replay history limit
//   - Record: transcript recording toggle, directory, and session patterns
//   - Profiles: launch profile file location
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - SHELL_OVERRIDE, DEFAULT_COLS, DEFAULT_ROWS, ENV_PROBE_TIMEOUT
//   - FLOW_HIGH_WATERMARK, FLOW_LOW_WATERMARK, RELAY_FLUSH_INTERVAL
//   - SCROLLBACK_LIMIT, RECORD_ENABLED, RECORD_DIR, RECORD_PATTERNS
//   - PROFILES_PATH, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
