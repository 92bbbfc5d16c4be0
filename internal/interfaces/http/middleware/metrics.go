package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"agency-proxy.backend/pkg/metrics"
)

// MetricsMiddleware observes every request under its route template
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
