package tradecloud

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/httpexec"
)

// Poster is the subset of *httpexec.Executor used by OrderClient.
type Poster interface {
	Post(ctx context.Context, url string, body any, etag string) (*httpexec.Response, error)
}

// OrderClient submits canonical single-delivery orders.
type OrderClient struct {
	cfg    Config
	exec   Poster
	logger *zap.Logger
}

// NewOrderClient creates an OrderClient posting through exec.
func NewOrderClient(cfg Config, exec Poster, logger *zap.Logger) *OrderClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderClient{cfg: cfg, exec: exec, logger: logger}
}

// SubmitOrder implements integration.OrderSubmitter.
func (c *OrderClient) SubmitOrder(ctx context.Context, order *integration.SingleDeliveryOrder) error {
	url := c.cfg.SingleDeliveryOrderURL()
	poNumber := order.Order.PurchaseOrderNumber

	resp, err := c.exec.Post(ctx, url, order, "")
	if err != nil {
		c.logger.Error("Posting single delivery order failed",
			zap.String("url", url),
			zap.String("document_no", poNumber),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", integration.ErrOrderSubmitFailed, err)
	}
	if err := resp.Err(); err != nil {
		c.logger.Error("Posting single delivery order rejected",
			zap.String("url", url),
			zap.String("document_no", poNumber),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", resp.Body),
		)
		return fmt.Errorf("%w: %v", integration.ErrOrderSubmitFailed, err)
	}

	c.logger.Info("Posted single delivery order",
		zap.String("url", url),
		zap.String("document_no", poNumber),
		zap.Int("lines", len(order.Lines)),
	)
	return nil
}

var _ integration.OrderSubmitter = (*OrderClient)(nil)
