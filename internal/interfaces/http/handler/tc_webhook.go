package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/tradecloud/bc-connector/internal/application/integration"
	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// TCWebhookPath is the path of the Tradecloud order event webhook.
const TCWebhookPath = "/tc/single-delivery-order-event"

// OrderEventHandler applies a Tradecloud order event to the ERP.
type OrderEventHandler interface {
	HandleEvent(ctx context.Context, envelope *integration.OrderEventEnvelope) (*appintegration.ResponseResult, error)
}

// TCWebhookHandler receives Tradecloud single delivery order events.
type TCWebhookHandler struct {
	BaseHandler
	events      OrderEventHandler
	bearerToken string
}

// NewTCWebhookHandler creates a TCWebhookHandler. bearerToken is the
// token configured on the Tradecloud webhook.
func NewTCWebhookHandler(events OrderEventHandler, bearerToken string, logger *zap.Logger) *TCWebhookHandler {
	return &TCWebhookHandler{
		BaseHandler: newBaseHandler(logger),
		events:      events,
		bearerToken: bearerToken,
	}
}

// RegisterRoutes implements RouteRegistrar.
func (h *TCWebhookHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET(TCWebhookPath, h.Describe)
	r.POST(TCWebhookPath, h.Receive)
}

// Describe answers GET probes of the webhook URL.
func (h *TCWebhookHandler) Describe(c *gin.Context) {
	c.String(http.StatusOK, "Tradecloud single delivery order event webhook")
}

// Receive authenticates and applies one order event. Any reply other than
// 200 makes Tradecloud redeliver the event.
func (h *TCWebhookHandler) Receive(c *gin.Context) {
	log := h.log(c)

	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		log.Warn("Order event rejected: bearer token missing")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !secretEqual(token, h.bearerToken) {
		log.Warn("Order event rejected: bearer token invalid")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	body, ok := h.readBody(c)
	if !ok {
		return
	}
	var envelope integration.OrderEventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Warn("Order event payload rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	log.Debug("Order event received", zap.ByteString("body", body))

	result, err := h.events.HandleEvent(c.Request.Context(), &envelope)
	switch {
	case errors.Is(err, integration.ErrInvalidOrderEvent):
		log.Warn("Order event rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	case err != nil:
		log.Error("Applying order event failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	log.Info("Processed order event",
		zap.String("document_no", result.DocumentNo),
		zap.String("event_name", result.EventName),
		zap.String("outcome", string(result.Outcome)),
	)
	c.Status(http.StatusOK)
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
