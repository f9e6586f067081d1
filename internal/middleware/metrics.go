package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request count and latency per route template. Paths under
// skipPrefixes (e.g. /metrics, /docs) are not observed.
func Metrics(metricsSvc *service.MetricsService, skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || hasAnyPrefix(c.Request.URL.Path, skipPrefixes) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			// 404s would otherwise mint one series per probed URL.
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
