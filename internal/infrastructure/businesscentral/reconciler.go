package businesscentral

import (
	"context"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
)

// Line mutation kinds and outcomes reported to a MutationObserver.
const (
	MutationReopen  = "reopen"
	MutationPatch   = "patch"
	MutationInsert  = "insert"
	MutationRelease = "release"

	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// OrderStore is the order surface the Reconciler works against.
// *PurchaseOrderClient implements it.
type OrderStore interface {
	GetConnectorOrder(ctx context.Context, documentNo string) (*integration.OrderMetadata, error)
	GetPurchaseOrder(ctx context.Context, documentNo string) (*integration.PurchaseOrder, error)
	GetPurchaseOrderLines(ctx context.Context, documentNo string) (*integration.PurchaseOrderLines, error)
	Reopen(ctx context.Context, documentNo, etag string) error
	Release(ctx context.Context, documentNo, etag string) error
	PatchLine(ctx context.Context, documentNo string, line integration.UpdatedLine, etag string) error
	InsertLine(ctx context.Context, documentNo string, line integration.PositionedNewLine, etag string) error
}

// MutationObserver is notified of every attempted ERP mutation.
type MutationObserver interface {
	LineMutation(ctx context.Context, kind, outcome string)
}

type nopMutationObserver struct{}

func (nopMutationObserver) LineMutation(context.Context, string, string) {}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithMutationObserver sets the observer for mutation outcomes.
func WithMutationObserver(o MutationObserver) ReconcilerOption {
	return func(r *Reconciler) {
		if o != nil {
			r.observer = o
		}
	}
}

// Reconciler applies order response mutations to an ERP purchase order,
// bracketed by a reopen and a release of the header.
type Reconciler struct {
	orders   OrderStore
	logger   *zap.Logger
	observer MutationObserver
}

// NewReconciler creates a Reconciler.
func NewReconciler(orders OrderStore, logger *zap.Logger, opts ...ReconcilerOption) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{orders: orders, logger: logger, observer: nopMutationObserver{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile implements integration.OrderResponseReconciler.
//
// Line mutations run sequentially. New lines are inserted one at a time with
// a fresh header etag and line snapshot, since every insert changes both.
// Reconcile reports false only when a line snapshot could not be fetched;
// nothing applied before that point is rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, documentNo string, updated []integration.UpdatedLine, added []integration.NewLine) bool {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciler", "reconcile",
		telemetry.WithAttribute("document_no", documentNo),
		telemetry.WithAttribute("updated_lines", len(updated)),
		telemetry.WithAttribute("new_lines", len(added)),
	)
	defer span.End()

	log := r.logger.With(zap.String("document_no", documentNo))

	reopened := r.reopen(ctx, log, documentNo)
	telemetry.SetAttribute(span, "reopened", reopened)

	lines, err := r.orders.GetPurchaseOrderLines(ctx, documentNo)
	if err != nil {
		log.Error("Could not fetch order lines, aborting", zap.Error(err))
		telemetry.RecordError(span, err)
		return false
	}

	for _, u := range updated {
		r.patch(ctx, log, documentNo, lines, u)
	}

	for _, n := range added {
		header, err := r.orders.GetPurchaseOrder(ctx, documentNo)
		if err != nil {
			log.Error("Could not fetch order header before insert, aborting", zap.String("item_no", n.No), zap.Error(err))
			telemetry.RecordError(span, err)
			return false
		}
		current, err := r.orders.GetPurchaseOrderLines(ctx, documentNo)
		if err != nil {
			log.Error("Could not fetch order lines before insert, aborting", zap.String("item_no", n.No), zap.Error(err))
			telemetry.RecordError(span, err)
			return false
		}
		r.insert(ctx, log, documentNo, header.ETag, current, n)
	}

	if reopened {
		r.release(ctx, log, documentNo)
	}

	telemetry.SetOK(span)
	return true
}

func (r *Reconciler) reopen(ctx context.Context, log *zap.Logger, documentNo string) bool {
	meta, err := r.orders.GetConnectorOrder(ctx, documentNo)
	if err != nil {
		log.Warn("Could not read order status, continuing without reopen", zap.Error(err))
		r.observer.LineMutation(ctx, MutationReopen, OutcomeFailed)
		return false
	}
	if meta.NormalizedStatus() != integration.OrderStatusReleased {
		log.Debug("Order not released, no reopen needed", zap.String("status", meta.Status))
		r.observer.LineMutation(ctx, MutationReopen, OutcomeSkipped)
		return false
	}
	if err := r.orders.Reopen(ctx, documentNo, meta.ETag); err != nil {
		log.Warn("Reopen failed, continuing", zap.String("etag", meta.ETag), zap.Error(err))
		r.observer.LineMutation(ctx, MutationReopen, OutcomeFailed)
		return false
	}
	log.Info("Reopened order")
	r.observer.LineMutation(ctx, MutationReopen, OutcomeApplied)
	return true
}

func (r *Reconciler) patch(ctx context.Context, log *zap.Logger, documentNo string, lines *integration.PurchaseOrderLines, u integration.UpdatedLine) {
	current, ok := lines.FindLine(u.LineNo)
	if !ok {
		log.Warn("Order line not found, skipping update", zap.Int("line_no", u.LineNo))
		r.observer.LineMutation(ctx, MutationPatch, OutcomeSkipped)
		return
	}
	if err := r.orders.PatchLine(ctx, documentNo, u, current.ETag); err != nil {
		log.Error("Updating order line failed",
			zap.Int("line_no", u.LineNo),
			zap.String("etag", current.ETag),
			zap.Error(err),
		)
		r.observer.LineMutation(ctx, MutationPatch, OutcomeFailed)
		return
	}
	log.Info("Updated order line", zap.Int("line_no", u.LineNo))
	r.observer.LineMutation(ctx, MutationPatch, OutcomeApplied)
}

func (r *Reconciler) insert(ctx context.Context, log *zap.Logger, documentNo, headerETag string, lines *integration.PurchaseOrderLines, n integration.NewLine) {
	lineNo, ok := lines.NextLineNoForItem(n.No)
	if !ok {
		log.Warn("No existing line for item, cannot position new line", zap.String("item_no", n.No))
		r.observer.LineMutation(ctx, MutationInsert, OutcomeSkipped)
		return
	}
	if err := r.orders.InsertLine(ctx, documentNo, n.At(lineNo), headerETag); err != nil {
		log.Error("Inserting order line failed",
			zap.String("item_no", n.No),
			zap.Int("line_no", lineNo),
			zap.String("etag", headerETag),
			zap.Error(err),
		)
		r.observer.LineMutation(ctx, MutationInsert, OutcomeFailed)
		return
	}
	log.Info("Inserted order line", zap.String("item_no", n.No), zap.Int("line_no", lineNo))
	r.observer.LineMutation(ctx, MutationInsert, OutcomeApplied)
}

func (r *Reconciler) release(ctx context.Context, log *zap.Logger, documentNo string) {
	meta, err := r.orders.GetConnectorOrder(ctx, documentNo)
	if err != nil {
		log.Error("Could not read order status, order left open", zap.Error(err))
		r.observer.LineMutation(ctx, MutationRelease, OutcomeFailed)
		return
	}
	if meta.NormalizedStatus() != integration.OrderStatusDraft {
		log.Warn("Order not in draft, release skipped", zap.String("status", meta.Status))
		r.observer.LineMutation(ctx, MutationRelease, OutcomeSkipped)
		return
	}
	if err := r.orders.Release(ctx, documentNo, meta.ETag); err != nil {
		log.Error("Release failed, order left open", zap.String("etag", meta.ETag), zap.Error(err))
		r.observer.LineMutation(ctx, MutationRelease, OutcomeFailed)
		return
	}
	log.Info("Released order")
	r.observer.LineMutation(ctx, MutationRelease, OutcomeApplied)
}

var (
	_ integration.OrderResponseReconciler = (*Reconciler)(nil)
	_ OrderStore                          = (*PurchaseOrderClient)(nil)
)
