package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// Filter excludes requests from tracing, e.g. health probes.
	Filter func(*http.Request) bool
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Tracing wraps otelgin and adds the request id to the server span.
// Spans of 5xx responses get an error status.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.Filter != nil {
		opts = append(opts, otelgin.WithFilter(func(r *http.Request) bool { return !cfg.Filter(r) }))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanEnricher runs inside the otelgin span. It must come after Tracing.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := c.GetString(RequestIDKey); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// SkipHealth is a TracingConfig.Filter for the health probe.
func SkipHealth(r *http.Request) bool {
	return r.URL.Path == "/health"
}
