package businesscentral

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/httpexec"
)

// Requester is the subset of *httpexec.Executor used by the clients here.
type Requester interface {
	Get(ctx context.Context, url string) (*httpexec.Response, error)
	Post(ctx context.Context, url string, body any, etag string) (*httpexec.Response, error)
	Patch(ctx context.Context, url string, body any, etag string) (*httpexec.Response, error)
	Delete(ctx context.Context, url string, etag string) (*httpexec.Response, error)
}

// PurchaseOrderClient reads and mutates purchase orders. Every read goes to
// the ERP; etags are never cached.
type PurchaseOrderClient struct {
	cfg    *Config
	exec   Requester
	logger *zap.Logger
}

// NewPurchaseOrderClient creates a client. cfg must be valid.
func NewPurchaseOrderClient(cfg *Config, exec Requester, logger *zap.Logger) *PurchaseOrderClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderClient{cfg: cfg, exec: exec, logger: logger}
}

// GetOrderMetadata implements integration.PurchaseOrderSource.
func (c *PurchaseOrderClient) GetOrderMetadata(ctx context.Context, resource string) (*integration.OrderMetadata, error) {
	var meta integration.OrderMetadata
	if err := c.getJSON(ctx, c.cfg.ResourceURL(resource), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetPurchaseOrder implements integration.PurchaseOrderSource.
func (c *PurchaseOrderClient) GetPurchaseOrder(ctx context.Context, documentNo string) (*integration.PurchaseOrder, error) {
	var order integration.PurchaseOrder
	if err := c.getJSON(ctx, c.cfg.OrderURL(documentNo), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPurchaseOrderLines implements integration.PurchaseOrderSource.
func (c *PurchaseOrderClient) GetPurchaseOrderLines(ctx context.Context, documentNo string) (*integration.PurchaseOrderLines, error) {
	var lines integration.PurchaseOrderLines
	if err := c.getJSON(ctx, c.cfg.LinesURL(documentNo), &lines); err != nil {
		return nil, err
	}
	return &lines, nil
}

// GetConnectorOrder reads the header through the connector extension API,
// whose etag authorizes the reopen and release actions.
func (c *PurchaseOrderClient) GetConnectorOrder(ctx context.Context, documentNo string) (*integration.OrderMetadata, error) {
	var meta integration.OrderMetadata
	err := c.getJSON(ctx, c.cfg.ConnectorOrderURL(documentNo), &meta)
	if err != nil {
		if isNotFound(err) {
			c.logger.Warn("Connector order not found, is the Tradecloud connector app installed?",
				zap.String("document_no", documentNo),
				zap.String("url", c.cfg.ConnectorOrderURL(documentNo)),
			)
		}
		return nil, err
	}
	return &meta, nil
}

// Reopen sets a released order back to the editable state.
func (c *PurchaseOrderClient) Reopen(ctx context.Context, documentNo, etag string) error {
	return c.send(ctx, http.MethodPost, c.cfg.ReopenURL(documentNo), nil, etag)
}

// Release releases an editable order.
func (c *PurchaseOrderClient) Release(ctx context.Context, documentNo, etag string) error {
	return c.send(ctx, http.MethodPost, c.cfg.ReleaseURL(documentNo), nil, etag)
}

// PatchLine applies an updated line with the line's own etag.
func (c *PurchaseOrderClient) PatchLine(ctx context.Context, documentNo string, line integration.UpdatedLine, etag string) error {
	return c.send(ctx, http.MethodPatch, c.cfg.LineURL(documentNo, line.LineNo), line, etag)
}

// InsertLine posts a new line with the header etag.
func (c *PurchaseOrderClient) InsertLine(ctx context.Context, documentNo string, line integration.PositionedNewLine, etag string) error {
	return c.send(ctx, http.MethodPost, c.cfg.LinesURL(documentNo), line, etag)
}

func (c *PurchaseOrderClient) getJSON(ctx context.Context, url string, v any) error {
	c.logger.Debug("Fetching", zap.String("url", url))

	resp, err := c.exec.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", integration.ErrRemoteRequestFailed, url, err)
	}
	if err := resp.Err(); err != nil {
		c.logger.Error("Fetch failed",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", resp.Body),
		)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s: %w", integration.ErrOrderNotFound, url, err)
		}
		return fmt.Errorf("%w: GET %s: %w", integration.ErrRemoteRequestFailed, url, err)
	}
	if err := resp.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrRemoteInvalidResponse, url, err)
	}
	return nil
}

func (c *PurchaseOrderClient) send(ctx context.Context, method, url string, body any, etag string) error {
	var (
		resp *httpexec.Response
		err  error
	)
	switch method {
	case http.MethodPatch:
		resp, err = c.exec.Patch(ctx, url, body, etag)
	default:
		resp, err = c.exec.Post(ctx, url, body, etag)
	}
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", integration.ErrRemoteRequestFailed, method, url, err)
	}
	if err := resp.Err(); err != nil {
		c.logger.Error("Mutation rejected",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", resp.Body),
		)
		return fmt.Errorf("%w: %s %s: %w", integration.ErrRemoteRequestFailed, method, url, err)
	}
	c.logger.Debug("Mutation applied", zap.String("method", method), zap.String("url", url))
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, integration.ErrOrderNotFound)
}

var _ integration.PurchaseOrderSource = (*PurchaseOrderClient)(nil)
