package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/dto"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// SubscriptionState reports the held ERP subscription.
type SubscriptionState interface {
	Held() (integration.Subscription, bool)
}

// SystemHandler serves /hello and /health.
type SystemHandler struct {
	BaseHandler
	connectorURL  string
	version       string
	subscriptions SubscriptionState
	checks        map[string]HealthCheck
	checkTimeout  time.Duration
	startTime     time.Time
}

// SystemHandlerConfig wires a SystemHandler.
type SystemHandlerConfig struct {
	ConnectorBaseURL string
	Version          string
	Subscriptions    SubscriptionState
	// Checks run on every /health request; any failure reports 503.
	Checks       map[string]HealthCheck
	CheckTimeout time.Duration
	Logger       *zap.Logger
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler(cfg SystemHandlerConfig) *SystemHandler {
	h := &SystemHandler{
		BaseHandler:   newBaseHandler(cfg.Logger),
		connectorURL:  cfg.ConnectorBaseURL,
		version:       cfg.Version,
		subscriptions: cfg.Subscriptions,
		checks:        cfg.Checks,
		checkTimeout:  cfg.CheckTimeout,
		startTime:     time.Now(),
	}
	if h.version == "" {
		h.version = "dev"
	}
	if h.checkTimeout <= 0 {
		h.checkTimeout = 2 * time.Second
	}
	return h
}

// RegisterRoutes implements RouteRegistrar.
func (h *SystemHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/hello", h.Hello)
	r.GET("/health", h.Health)
}

// Hello confirms the connector is reachable at its public base URL.
func (h *SystemHandler) Hello(c *gin.Context) {
	h.log(c).Info("Hello", zap.String("connector_base_url", h.connectorURL))
	c.String(http.StatusOK, "Tradecloud One Business Central Connector")
}

// Health reports liveness, the subscription state and dependency checks.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.subscriptions != nil {
		if sub, ok := h.subscriptions.Held(); ok {
			resp.SubscriptionHeld = true
			resp.SubscriptionID = sub.SubscriptionID
		}
	}

	status := http.StatusOK
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
		defer cancel()

		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Checks = make(map[string]string, len(names))
		for _, name := range names {
			if err := h.checks[name](ctx); err != nil {
				h.log(c).Warn("Health check failed", zap.String("check", name), zap.Error(err))
				resp.Checks[name] = err.Error()
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	if status != http.StatusOK {
		c.JSON(status, dto.Response{Success: false, Data: resp, Error: &dto.ErrorInfo{
			Code:    dto.ErrCodeUnavailable,
			Message: "dependency check failed",
		}})
		return
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}
