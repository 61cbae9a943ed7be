package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Connector metric names.
const (
	MetricOrdersForwarded   = "connector_orders_forwarded_total"
	MetricOrderResponses    = "connector_order_responses_total"
	MetricTokenAcquisitions = "connector_token_acquisitions_total"
	MetricLineMutations     = "connector_line_mutations_total"
	MetricReconcileDuration = "connector_reconcile_duration_seconds"
)

// Connector attribute keys.
var (
	AttrOutcome      = attribute.Key("outcome")
	AttrSystem       = attribute.Key("system")
	AttrMutationKind = attribute.Key("kind")
)

// ReconcileDurationBuckets spans a handful of remote round trips.
var ReconcileDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// ConnectorMetrics records the connector's sync activity.
// A nil *ConnectorMetrics records nothing.
type ConnectorMetrics struct {
	logger *zap.Logger

	ordersForwarded   *Counter
	orderResponses    *Counter
	tokenAcquisitions *Counter
	lineMutations     *Counter
	reconcileDuration *Histogram
}

// NewConnectorMetrics registers the connector instruments on meter.
func NewConnectorMetrics(meter metric.Meter, logger *zap.Logger) (*ConnectorMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &ConnectorMetrics{logger: logger}
	var err error

	cm.ordersForwarded, err = NewCounter(meter, MetricOrdersForwarded,
		"Business Central order notifications handled, by outcome", "{orders}")
	if err != nil {
		return nil, err
	}

	cm.orderResponses, err = NewCounter(meter, MetricOrderResponses,
		"Tradecloud order events handled, by outcome", "{events}")
	if err != nil {
		return nil, err
	}

	cm.tokenAcquisitions, err = NewCounter(meter, MetricTokenAcquisitions,
		"Token acquisitions per remote system", "{acquisitions}")
	if err != nil {
		return nil, err
	}

	cm.lineMutations, err = NewCounter(meter, MetricLineMutations,
		"Purchase order mutations attempted against Business Central", "{mutations}")
	if err != nil {
		return nil, err
	}

	cm.reconcileDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        MetricReconcileDuration,
		Description: "Duration of order response reconciliation runs",
		Unit:        "s",
		Boundaries:  ReconcileDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordOrderForwarded counts a handled order notification.
func (cm *ConnectorMetrics) RecordOrderForwarded(ctx context.Context, outcome string) {
	if cm == nil {
		return
	}
	cm.ordersForwarded.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordOrderResponse counts a handled order event.
func (cm *ConnectorMetrics) RecordOrderResponse(ctx context.Context, outcome string) {
	if cm == nil {
		return
	}
	cm.orderResponses.Inc(ctx, AttrOutcome.String(outcome))
}

// TokenAcquisition counts an acquisition attempt for system.
func (cm *ConnectorMetrics) TokenAcquisition(ctx context.Context, system string, err error) {
	if cm == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		cm.logger.Debug("Token acquisition failed", zap.String("system", system), zap.Error(err))
	}
	cm.tokenAcquisitions.Inc(ctx, AttrSystem.String(system), AttrOutcome.String(outcome))
}

// LineMutation counts a header or line mutation by kind and outcome.
func (cm *ConnectorMetrics) LineMutation(ctx context.Context, kind, outcome string) {
	if cm == nil {
		return
	}
	cm.lineMutations.Inc(ctx, AttrMutationKind.String(kind), AttrOutcome.String(outcome))
}

// RecordReconcileDuration records the wall time of one reconciliation run.
func (cm *ConnectorMetrics) RecordReconcileDuration(ctx context.Context, d time.Duration, outcome string) {
	if cm == nil {
		return
	}
	cm.reconcileDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewConnectorMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
