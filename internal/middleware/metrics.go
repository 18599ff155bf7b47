package middleware

import (
	"strconv"
	"time"

	"parkinsight/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath(), status).Observe(duration)

		// Handlers record a cache_hit flag on dataset reads.
		if cacheHit, exists := c.Get("cache_hit"); exists && cacheHit.(bool) {
			metrics.CacheHitsTotal.Inc()
		} else if exists {
			metrics.CacheMissesTotal.Inc()
		}
	}
}
