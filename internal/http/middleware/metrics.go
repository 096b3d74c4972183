package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/observability"
)

// Metrics records request count, latency and the in-flight gauge per route.
// A nil m disables it.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		status := c.Writer.Status()
		m.ObserveAPI(c.Request.Method, routeLabel(c.FullPath(), status), strconv.Itoa(status), time.Since(start))
	}
}

// routeLabel keeps the route label set bounded. Paths that match no route
// share one label, and a 405 on a declared route is kept apart from the
// methods the route serves.
func routeLabel(path string, status int) string {
	switch {
	case path == "":
		return "unmatched"
	case status == http.StatusMethodNotAllowed:
		return path + ":not_allowed"
	default:
		return path
	}
}
