// Package integration holds the connector's use cases: forwarding ERP orders
// to Tradecloud and applying Tradecloud order events back to the ERP.
package integration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
)

// SendOutcome classifies one SendOrder run.
type SendOutcome string

const (
	SendOutcomeForwarded     SendOutcome = "forwarded"
	SendOutcomeSkippedStatus SendOutcome = "skipped_status"
	SendOutcomeNoLines       SendOutcome = "no_admissible_lines"
	SendOutcomeFailed        SendOutcome = "failed"
)

// SendResult describes what SendOrder did with a notification.
type SendResult struct {
	DocumentNo  string                  `json:"document_no,omitempty"`
	Status      integration.OrderStatus `json:"status,omitempty"`
	Outcome     SendOutcome             `json:"outcome"`
	Lines       int                     `json:"lines"`
	Diagnostics []Diagnostic            `json:"diagnostics,omitempty"`
}

// ForwardMetrics records SendOrder outcomes.
type ForwardMetrics interface {
	RecordOrderForwarded(ctx context.Context, outcome string)
}

type nopForwardMetrics struct{}

func (nopForwardMetrics) RecordOrderForwarded(context.Context, string) {}

// OrderSyncService forwards released ERP purchase orders to Tradecloud.
type OrderSyncService struct {
	source    integration.PurchaseOrderSource
	submitter integration.OrderSubmitter
	metrics   ForwardMetrics
	logger    *zap.Logger
}

// NewOrderSyncService creates an OrderSyncService. metrics and logger may be nil.
func NewOrderSyncService(
	source integration.PurchaseOrderSource,
	submitter integration.OrderSubmitter,
	metrics ForwardMetrics,
	logger *zap.Logger,
) *OrderSyncService {
	if metrics == nil {
		metrics = nopForwardMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSyncService{source: source, submitter: submitter, metrics: metrics, logger: logger}
}

// SendOrder forwards the order addressed by a notification resource.
//
// Orders in draft or review are skipped; this also ignores the notifications
// caused by the reconciler's own edits while an order is reopened. An order
// without admissible lines is not an error. Any fetch or submit failure is
// returned so the webhook can ask for redelivery.
//
// Outbound calls do not inherit cancellation from ctx; each remote call is
// bounded by its executor's client timeout.
func (s *OrderSyncService) SendOrder(ctx context.Context, resource string) (*SendResult, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := telemetry.StartServiceSpan(ctx, "order_sync", "send_order",
		telemetry.WithAttribute("resource", resource),
	)
	defer span.End()

	result, err := s.sendOrder(ctx, resource)
	s.metrics.RecordOrderForwarded(ctx, string(result.Outcome))
	telemetry.SetAttributes(span,
		"document_no", result.DocumentNo,
		"outcome", string(result.Outcome),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}
	telemetry.SetOK(span)
	return result, nil
}

func (s *OrderSyncService) sendOrder(ctx context.Context, resource string) (*SendResult, error) {
	result := &SendResult{Outcome: SendOutcomeFailed}
	if resource == "" {
		return result, fmt.Errorf("%w: notification resource", integration.ErrMissingResource)
	}

	meta, err := s.source.GetOrderMetadata(ctx, resource)
	if err != nil {
		s.logger.Error("Could not read order metadata", zap.String("resource", resource), zap.Error(err))
		return result, fmt.Errorf("%w: %w", integration.ErrOrderSnapshotFailed, err)
	}
	result.DocumentNo = meta.Number
	result.Status = meta.NormalizedStatus()

	log := s.logger.With(zap.String("document_no", meta.Number))

	switch result.Status {
	case integration.OrderStatusDraft, integration.OrderStatusInReview:
		log.Debug("Order not released, skipping", zap.String("status", meta.Status))
		result.Outcome = SendOutcomeSkippedStatus
		return result, nil
	}

	header, err := s.source.GetPurchaseOrder(ctx, meta.Number)
	if err != nil {
		log.Error("Could not read order header", zap.Error(err))
		return result, fmt.Errorf("%w: %w", integration.ErrOrderSnapshotFailed, err)
	}
	lines, err := s.source.GetPurchaseOrderLines(ctx, meta.Number)
	if err != nil {
		log.Error("Could not read order lines", zap.Error(err))
		return result, fmt.Errorf("%w: %w", integration.ErrOrderSnapshotFailed, err)
	}

	order, diags := ToCanonical(header, lines)
	result.Diagnostics = diags
	for _, d := range diags {
		log.Warn("Order line not forwarded", zap.String("position", d.Position), zap.String("reason", d.Reason))
	}
	if order == nil {
		log.Warn("Order has no admissible lines, nothing to send")
		result.Outcome = SendOutcomeNoLines
		return result, nil
	}
	result.Lines = len(order.Lines)

	if err := s.submitter.SubmitOrder(ctx, order); err != nil {
		return result, err
	}

	log.Info("Forwarded order", zap.Int("lines", result.Lines))
	result.Outcome = SendOutcomeForwarded
	return result, nil
}
