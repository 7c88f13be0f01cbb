package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver receives one observation per served request.
type HTTPObserver interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// unmatchedRoute labels requests that hit no route so raw paths never become label values.
const unmatchedRoute = "unmatched"

// Metrics reports method, route template, status and latency. Paths in skip are not observed.
func Metrics(observer HTTPObserver, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]bool, len(skip))
	for _, p := range skip {
		ignored[p] = true
	}
	return func(c *gin.Context) {
		if observer == nil || ignored[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		observer.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
