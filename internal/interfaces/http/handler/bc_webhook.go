package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/tradecloud/bc-connector/internal/application/integration"
	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// BCWebhookPath is the notification URL path registered with Business Central.
const BCWebhookPath = "/bc/purchase-order"

// OrderForwarder forwards an ERP order to Tradecloud.
type OrderForwarder interface {
	SendOrder(ctx context.Context, resource string) (*appintegration.SendResult, error)
}

// BCWebhookHandler receives Business Central subscription handshakes and
// purchase order change notifications.
type BCWebhookHandler struct {
	BaseHandler
	forwarder    OrderForwarder
	sharedSecret string
}

// NewBCWebhookHandler creates a BCWebhookHandler. sharedSecret is the
// clientState the subscription was created with.
func NewBCWebhookHandler(forwarder OrderForwarder, sharedSecret string, logger *zap.Logger) *BCWebhookHandler {
	return &BCWebhookHandler{
		BaseHandler:  newBaseHandler(logger),
		forwarder:    forwarder,
		sharedSecret: sharedSecret,
	}
}

// RegisterRoutes implements RouteRegistrar.
func (h *BCWebhookHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET(BCWebhookPath, h.Describe)
	r.POST(BCWebhookPath, h.Receive)
}

// Describe answers GET probes of the webhook URL.
func (h *BCWebhookHandler) Describe(c *gin.Context) {
	c.String(http.StatusOK, "Business Central Purchase Order Webhook")
}

// Receive handles one webhook delivery. Notifications are processed in order
// and the first failure decides the reply, so Business Central redelivers
// the batch.
func (h *BCWebhookHandler) Receive(c *gin.Context) {
	log := h.log(c)
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	hook, err := integration.DecodeERPWebhook(body)
	if err != nil {
		log.Warn("Business Central webhook payload rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	switch hook.Kind {
	case integration.WebhookHandshake:
		h.handshake(c, log, hook.ClientState)
	default:
		h.notifications(c, log, hook.Notifications)
	}
}

func (h *BCWebhookHandler) handshake(c *gin.Context, log *zap.Logger, clientState string) {
	if !secretEqual(clientState, h.sharedSecret) {
		log.Warn("Subscription handshake rejected: client state mismatch")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	token := c.Query("validationToken")
	if token == "" {
		log.Warn("Subscription handshake rejected: empty validation token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	log.Info("Subscription handshake accepted")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(token))
}

func (h *BCWebhookHandler) notifications(c *gin.Context, log *zap.Logger, notifications []integration.Notification) {
	log.Info("Business Central notifications received", zap.Int("count", len(notifications)))
	ctx := c.Request.Context()

	for _, n := range notifications {
		nlog := log.With(
			zap.String("resource", n.Resource),
			zap.String("change_type", n.ChangeType),
			zap.String("subscription_id", n.SubscriptionID),
		)
		if !secretEqual(n.ClientState, h.sharedSecret) {
			nlog.Warn("Notification rejected: client state mismatch")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if n.Resource == "" {
			nlog.Warn("Notification rejected", zap.Error(integration.ErrMissingResource))
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		result, err := h.forwarder.SendOrder(ctx, n.Resource)
		if err != nil {
			nlog.Error("Forwarding purchase order failed", zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		nlog.Info("Processed Business Central notification",
			zap.String("document_no", result.DocumentNo),
			zap.String("outcome", string(result.Outcome)),
		)
	}
	c.Status(http.StatusOK)
}
