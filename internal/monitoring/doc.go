/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the terminal
server, tracking HTTP requests, WebSocket traffic, session lifecycles, and
output volume.

# Features

- HTTP request metrics (latency, throughput, size)
- Session lifecycle metrics (spawns, exits, active count by role)
- PTY output volume metrics
- Session operation timings (spawn, close)
- WebSocket connection and message metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record lifecycle activity
	metrics.RecordSpawn("shell")
	metrics.RecordOutput(4096)

	// Time operations
	timer := monitoring.NewTimer(metrics, "session", "spawn")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
