package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge
	SpawnsTotal    *prometheus.CounterVec
	ExitsTotal     *prometheus.CounterVec
	OutputBytes    prometheus.Counter

	// Operation metrics
	OpsTotal   *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for JSON API
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	ActiveSessions int64   `json:"active_sessions"`
	TotalSpawns    int64   `json:"total_spawns"`
	OutputBytes    int64   `json:"output_bytes"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termgrid_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termgrid_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termgrid_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "termgrid_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SpawnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termgrid_sessions_spawned_total",
				Help: "Total number of PTY processes spawned",
			},
			[]string{"role"},
		),
		ExitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termgrid_sessions_exited_total",
				Help: "Total number of PTY process exits",
			},
			[]string{"role"},
		),
		OutputBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "termgrid_output_bytes_total",
				Help: "Total PTY output bytes delivered to clients",
			},
		),

		// Operation metrics
		OpsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termgrid_ops_total",
				Help: "Total number of session operations",
			},
			[]string{"subsystem", "op", "status"},
		),
		OpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termgrid_op_duration_seconds",
				Help:    "Session operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"subsystem", "op"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "termgrid_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termgrid_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "termgrid_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordSpawn records a PTY process spawn
func (m *Metrics) RecordSpawn(role string) {
	m.SpawnsTotal.WithLabelValues(role).Inc()
	m.SessionsActive.Inc()

	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.snapshot.TotalSpawns++
	m.mu.Unlock()
}

// RecordExit records a PTY process exit
func (m *Metrics) RecordExit(role string) {
	m.ExitsTotal.WithLabelValues(role).Inc()
	m.SessionsActive.Dec()

	m.mu.Lock()
	if m.snapshot.ActiveSessions > 0 {
		m.snapshot.ActiveSessions--
	}
	m.mu.Unlock()
}

// RecordOutput records delivered PTY output
func (m *Metrics) RecordOutput(bytes int) {
	m.OutputBytes.Add(float64(bytes))

	m.mu.Lock()
	m.snapshot.OutputBytes += int64(bytes)
	m.mu.Unlock()
}

// RecordOp records a session operation
func (m *Metrics) RecordOp(subsystem, op, status string, duration time.Duration) {
	m.OpsTotal.WithLabelValues(subsystem, op, status).Inc()
	m.OpDuration.WithLabelValues(subsystem, op).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
