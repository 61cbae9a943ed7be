package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
)

// ResponseOutcome classifies one HandleEvent run.
type ResponseOutcome string

const (
	ResponseOutcomeApplied   ResponseOutcome = "applied"
	ResponseOutcomeDuplicate ResponseOutcome = "duplicate"
	ResponseOutcomeEmpty     ResponseOutcome = "no_mutations"
	ResponseOutcomeAborted   ResponseOutcome = "aborted"
	ResponseOutcomeInvalid   ResponseOutcome = "invalid"
)

// DefaultIdempotencyTTL is how long a processed message id is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// ResponseResult describes what HandleEvent did with an order event.
type ResponseResult struct {
	DocumentNo   string          `json:"document_no,omitempty"`
	EventName    string          `json:"event_name,omitempty"`
	MessageID    string          `json:"message_id,omitempty"`
	Outcome      ResponseOutcome `json:"outcome"`
	UpdatedLines int             `json:"updated_lines"`
	NewLines     int             `json:"new_lines"`
	Diagnostics  []Diagnostic    `json:"diagnostics,omitempty"`
}

// ResponseMetrics records HandleEvent outcomes.
type ResponseMetrics interface {
	RecordOrderResponse(ctx context.Context, outcome string)
	RecordReconcileDuration(ctx context.Context, d time.Duration, outcome string)
}

type nopResponseMetrics struct{}

func (nopResponseMetrics) RecordOrderResponse(context.Context, string) {}

func (nopResponseMetrics) RecordReconcileDuration(context.Context, time.Duration, string) {}

// OrderResponseServiceConfig wires an OrderResponseService.
type OrderResponseServiceConfig struct {
	Reconciler integration.OrderResponseReconciler
	// Locks defaults to a private table.
	Locks *DocumentLocks
	// Idempotency is optional; without it every delivery is processed.
	Idempotency    integration.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        ResponseMetrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

// OrderResponseService applies Tradecloud order events to ERP purchase orders.
// At most one event per document is reconciled at a time.
type OrderResponseService struct {
	reconciler integration.OrderResponseReconciler
	locks      *DocumentLocks
	store      integration.IdempotencyStore
	ttl        time.Duration
	metrics    ResponseMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrderResponseService creates an OrderResponseService.
func NewOrderResponseService(cfg OrderResponseServiceConfig) *OrderResponseService {
	s := &OrderResponseService{
		reconciler: cfg.Reconciler,
		locks:      cfg.Locks,
		store:      cfg.Idempotency,
		ttl:        cfg.IdempotencyTTL,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
	if s.locks == nil {
		s.locks = NewDocumentLocks()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultIdempotencyTTL
	}
	if s.metrics == nil {
		s.metrics = nopResponseMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// HandleEvent maps an order event onto line mutations and reconciles them.
//
// An error means the event was not applied and should be redelivered:
// either it is invalid, the document lock could not be taken, or the
// reconciler aborted. A redelivered event that was already applied is
// reported as a duplicate without touching the ERP.
//
// Only the wait for the document lock honors ctx cancellation. Once the lock
// is held the run completes, so a reopened order is always released again;
// each remote call is bounded by its executor's client timeout.
func (s *OrderResponseService) HandleEvent(ctx context.Context, envelope *integration.OrderEventEnvelope) (*ResponseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_response", "handle_event")
	defer span.End()

	result, err := s.handleEvent(ctx, envelope)
	s.metrics.RecordOrderResponse(ctx, string(result.Outcome))
	telemetry.SetAttributes(span,
		"document_no", result.DocumentNo,
		"event_name", result.EventName,
		"outcome", string(result.Outcome),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}
	telemetry.SetOK(span)
	return result, nil
}

func (s *OrderResponseService) handleEvent(ctx context.Context, envelope *integration.OrderEventEnvelope) (*ResponseResult, error) {
	result := &ResponseResult{Outcome: ResponseOutcomeInvalid}
	if envelope == nil || envelope.Event == nil {
		return result, fmt.Errorf("%w: missing singleDeliveryOrderEvent", integration.ErrInvalidOrderEvent)
	}
	event := envelope.Event
	result.EventName = envelope.EventName
	result.DocumentNo = event.DocumentNo()
	if result.DocumentNo == "" {
		return result, fmt.Errorf("%w: missing buyerOrder.purchaseOrderNumber", integration.ErrInvalidOrderEvent)
	}
	if event.Meta.MessageID != uuid.Nil {
		result.MessageID = event.Meta.MessageID.String()
	}

	log := s.logger.With(
		zap.String("document_no", result.DocumentNo),
		zap.String("event_name", result.EventName),
		zap.String("message_id", result.MessageID),
	)

	unlock, err := s.locks.Lock(ctx, result.DocumentNo)
	if err != nil {
		result.Outcome = ResponseOutcomeAborted
		return result, fmt.Errorf("lock document %s: %w", result.DocumentNo, err)
	}
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	if s.alreadyProcessed(ctx, log, result.MessageID) {
		log.Info("Order event already applied, skipping")
		result.Outcome = ResponseOutcomeDuplicate
		return result, nil
	}

	resp, diags := ToWireMutations(event)
	result.Diagnostics = diags
	result.UpdatedLines = len(resp.UpdatedLines)
	result.NewLines = len(resp.NewLines)
	for _, d := range diags {
		log.Warn("Order event line not applied", zap.String("position", d.Position), zap.String("reason", d.Reason))
	}
	if resp.IsEmpty() {
		log.Info("Order event carries no line mutations")
		result.Outcome = ResponseOutcomeEmpty
		s.markProcessed(ctx, log, result.MessageID)
		return result, nil
	}

	start := s.now()
	var ok bool
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("reconcile"), func(ctx context.Context) {
		ok = s.reconciler.Reconcile(ctx, resp.DocumentNo, resp.UpdatedLines, resp.NewLines)
	})
	elapsed := s.now().Sub(start)

	if !ok {
		result.Outcome = ResponseOutcomeAborted
		s.metrics.RecordReconcileDuration(ctx, elapsed, string(result.Outcome))
		return result, fmt.Errorf("%w: reconciliation of %s aborted", integration.ErrOrderSnapshotFailed, result.DocumentNo)
	}

	result.Outcome = ResponseOutcomeApplied
	s.metrics.RecordReconcileDuration(ctx, elapsed, string(result.Outcome))
	s.markProcessed(ctx, log, result.MessageID)
	log.Info("Applied order event",
		zap.Int("updated_lines", result.UpdatedLines),
		zap.Int("new_lines", result.NewLines),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

// alreadyProcessed reports false when the store cannot be read.
func (s *OrderResponseService) alreadyProcessed(ctx context.Context, log *zap.Logger, messageID string) bool {
	if s.store == nil || messageID == "" {
		return false
	}
	processed, err := s.store.IsProcessed(ctx, messageID)
	if err != nil {
		log.Warn("Idempotency check failed, processing event", zap.Error(err))
		return false
	}
	return processed
}

func (s *OrderResponseService) markProcessed(ctx context.Context, log *zap.Logger, messageID string) {
	if s.store == nil || messageID == "" {
		return
	}
	if _, err := s.store.MarkProcessed(ctx, messageID, s.ttl); err != nil {
		log.Warn("Could not record processed event", zap.Error(err))
	}
}
