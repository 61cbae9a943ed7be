package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
)

// Profiling tags the handler's CPU samples with the route pattern and method.
// Paths in skip are left untagged.
func Profiling(enabled bool, skip ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		labels := telemetry.HTTPRequestLabels(routePattern(c), c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
