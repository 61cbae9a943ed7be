// Package router assembles the connector's gin engine.
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/infrastructure/logger"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/dto"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/handler"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/middleware"
)

// Config selects the middleware chain.
type Config struct {
	Logger      *zap.Logger
	ServiceName string

	TracingEnabled bool
	TracerProvider trace.TracerProvider
	// Meter enables HTTP metrics when non-nil.
	Meter            metric.Meter
	ProfilingEnabled bool

	Security       middleware.SecurityConfig
	TrustedProxies []string
	// MaxBodySize applies to the webhook routes.
	MaxBodySize int64
	// RateLimiter applies per client IP to the webhook routes; nil disables it.
	RateLimiter *middleware.RateLimiter
}

// Router manages HTTP route registration
type Router struct {
	engine   *gin.Engine
	cfg      Config
	system   []handler.RouteRegistrar
	webhooks []handler.RouteRegistrar
}

// NewRouter creates an engine with the shared middleware chain installed.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("router: trusted proxies: %w", err)
	}
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(cfg.Logger),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    cfg.ServiceName,
			Enabled:        cfg.TracingEnabled,
			Filter:         middleware.SkipHealth,
			TracerProvider: cfg.TracerProvider,
		}),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(cfg.Meter, cfg.Logger),
		middleware.Profiling(cfg.ProfilingEnabled, "/health"),
		logger.GinMiddleware(cfg.Logger),
		middleware.SecureWithConfig(cfg.Security),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, "route not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponse(dto.ErrCodeMethodNotAllowed, "method not allowed"))
	})

	return &Router{engine: engine, cfg: cfg}, nil
}

// RegisterSystem adds operational routes, served without body or rate limits.
func (r *Router) RegisterSystem(registrars ...handler.RouteRegistrar) *Router {
	r.system = append(r.system, registrars...)
	return r
}

// RegisterWebhooks adds inbound webhook routes.
func (r *Router) RegisterWebhooks(registrars ...handler.RouteRegistrar) *Router {
	r.webhooks = append(r.webhooks, registrars...)
	return r
}

// Setup registers all routes and returns the engine.
func (r *Router) Setup() *gin.Engine {
	for _, registrar := range r.system {
		registrar.RegisterRoutes(r.engine)
	}

	group := r.engine.Group("")
	if r.cfg.MaxBodySize > 0 {
		group.Use(middleware.BodyLimit(r.cfg.MaxBodySize))
	}
	if r.cfg.RateLimiter != nil {
		group.Use(middleware.RateLimit(r.cfg.RateLimiter))
	}
	for _, registrar := range r.webhooks {
		registrar.RegisterRoutes(group)
	}
	return r.engine
}
