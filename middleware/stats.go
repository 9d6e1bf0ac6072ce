package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-analyser/backend/stats"
)

// StatsMiddleware tracks visitors and per-analysis timing.
func StatsMiddleware(storage *stats.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		storage.TrackVisitor(c.ClientIP())

		c.Next()

		// Only analysis requests feed the request counters.
		if c.Request.URL.Path == "/api/analyze" && c.Request.Method == http.MethodPost {
			durationMs := float64(time.Since(start).Milliseconds())
			storage.TrackAnalysis(durationMs, c.Writer.Status() >= 400)
		}
	}
}
