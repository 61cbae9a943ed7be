package businesscentral

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
)

// SubscriptionClient owns the connector's purchase order subscription.
// The held subscription lives for the lifetime of the process only.
type SubscriptionClient struct {
	cfg    *Config
	exec   Requester
	logger *zap.Logger

	mu   sync.Mutex
	held *integration.Subscription
}

// NewSubscriptionClient creates a SubscriptionClient. cfg must be valid.
func NewSubscriptionClient(cfg *Config, exec Requester, logger *zap.Logger) *SubscriptionClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionClient{cfg: cfg, exec: exec, logger: logger}
}

// List returns all subscriptions registered for the environment.
func (c *SubscriptionClient) List(ctx context.Context) (*integration.Subscriptions, error) {
	url := c.cfg.SubscriptionURL()
	resp, err := c.exec.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", integration.ErrSubscriptionFailed, url, err)
	}
	if err := resp.Err(); err != nil {
		c.logger.Error("Listing subscriptions failed",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", resp.Body),
		)
		return nil, fmt.Errorf("%w: %w", integration.ErrSubscriptionFailed, err)
	}
	var subs integration.Subscriptions
	if err := resp.Decode(&subs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", integration.ErrRemoteInvalidResponse, url, err)
	}
	return &subs, nil
}

// EnsureSubscription implements integration.SubscriptionManager.
func (c *SubscriptionClient) EnsureSubscription(ctx context.Context) error {
	notificationURL, resource := c.cfg.NotificationURL(), c.cfg.SubscriptionResource()
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "ensure",
		telemetry.WithAttribute("notification_url", notificationURL),
		telemetry.WithAttribute("resource", resource),
	)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	subs, err := c.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if existing, ok := subs.Find(notificationURL, resource); ok {
		c.held = &existing
		c.logger.Info("Adopted existing subscription",
			zap.String("subscription_id", existing.SubscriptionID),
			zap.Time("expiration", existing.ExpirationDateTime),
		)
		telemetry.SetAttribute(span, "adopted", true)
		telemetry.SetOK(span)
		return nil
	}

	created, err := c.create(ctx, integration.SubscriptionRequest{
		NotificationURL: notificationURL,
		Resource:        resource,
		ClientState:     c.cfg.SharedSecret,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	c.held = created
	c.logger.Info("Subscribed to purchase order notifications",
		zap.String("subscription_id", created.SubscriptionID),
		zap.String("notification_url", notificationURL),
		zap.String("resource", resource),
	)
	telemetry.SetAttribute(span, "adopted", false)
	telemetry.SetOK(span)
	return nil
}

func (c *SubscriptionClient) create(ctx context.Context, req integration.SubscriptionRequest) (*integration.Subscription, error) {
	url := c.cfg.SubscriptionURL()
	resp, err := c.exec.Post(ctx, url, req, "")
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %v", integration.ErrSubscriptionFailed, url, err)
	}
	if err := resp.Err(); err != nil {
		c.logger.Error("Subscribing failed",
			zap.String("url", url),
			zap.String("resource", req.Resource),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", resp.Body),
		)
		return nil, fmt.Errorf("%w: %w", integration.ErrSubscriptionFailed, err)
	}
	var sub integration.Subscription
	if err := resp.Decode(&sub); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", integration.ErrRemoteInvalidResponse, url, err)
	}
	return &sub, nil
}

// Remove deletes the subscription id guarded by etag.
func (c *SubscriptionClient) Remove(ctx context.Context, subscriptionID, etag string) error {
	url := c.cfg.SubscriptionEntryURL(subscriptionID)
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "remove",
		telemetry.WithAttribute("subscription_id", subscriptionID),
	)
	defer span.End()

	resp, err := c.exec.Delete(ctx, url, etag)
	if err != nil {
		err = fmt.Errorf("%w: DELETE %s: %v", integration.ErrSubscriptionFailed, url, err)
		telemetry.RecordError(span, err)
		return err
	}
	if err := resp.Err(); err != nil {
		c.logger.Error("Unsubscribing failed",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", resp.Body),
		)
		err = fmt.Errorf("%w: %w", integration.ErrSubscriptionFailed, err)
		telemetry.RecordError(span, err)
		return err
	}
	c.logger.Info("Unsubscribed", zap.String("url", url))
	telemetry.SetOK(span)
	return nil
}

// Unsubscribe implements integration.SubscriptionManager.
func (c *SubscriptionClient) Unsubscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held == nil {
		return nil
	}
	held := *c.held
	c.held = nil
	return c.Remove(ctx, held.SubscriptionID, held.ETag)
}

// Held implements integration.SubscriptionManager.
func (c *SubscriptionClient) Held() (integration.Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil {
		return integration.Subscription{}, false
	}
	return *c.held, true
}

var _ integration.SubscriptionManager = (*SubscriptionClient)(nil)
