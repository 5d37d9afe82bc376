package middleware

import (
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()

		m := metrics.Get()
		m.IncrementRequests(statusCode < 400, latency)

		// Route template keeps the endpoint map bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.TrackEndpoint(path, c.Request.Method, statusCode, latency)
	}
}
