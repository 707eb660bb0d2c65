package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/auditbridge-backend/internal/observability"
)

// Probe and scrape routes are not API traffic.
var unmeteredRoutes = map[string]bool{
	"/healthcheck": true,
	"/metrics":     true,
}

// Metrics records API request counts, latency and in-flight requests by
// matched route. Unmatched paths share the "unknown" route label.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if unmeteredRoutes[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unknown"
		}

		start := time.Now()
		m.APIInflightInc()
		defer m.APIInflightDec()

		c.Next()

		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
