package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Record metrics
		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}
		metrics.RecordHTTPRequest(method, path, status, duration, respSize)
	}
}

// Timer measures operation duration
type Timer struct {
	start     time.Time
	metrics   *Metrics
	subsystem string
	op        string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, subsystem, op string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		subsystem: subsystem,
		op:        op,
	}
}

// Stop stops the timer and records the duration. Safe with nil metrics.
func (t *Timer) Stop(status string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordOp(t.subsystem, t.op, status, time.Since(t.start))
}
