package integration

import (
	"context"
	"time"
)

// PurchaseOrderSource reads purchase order snapshots from the ERP.
// Every call fetches fresh state; nothing is cached between calls.
type PurchaseOrderSource interface {
	// GetOrderMetadata reads the API v2.0 header addressed by a notification resource.
	GetOrderMetadata(ctx context.Context, resource string) (*OrderMetadata, error)

	// GetPurchaseOrder reads the OData header of documentNo.
	GetPurchaseOrder(ctx context.Context, documentNo string) (*PurchaseOrder, error)

	// GetPurchaseOrderLines reads the OData lines of documentNo.
	GetPurchaseOrderLines(ctx context.Context, documentNo string) (*PurchaseOrderLines, error)
}

// OrderSubmitter delivers canonical orders to the commerce platform.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order *SingleDeliveryOrder) error
}

// OrderResponseReconciler applies line mutations to an ERP purchase order.
// It returns false only when a snapshot needed to proceed could not be fetched;
// individual line failures are logged and do not change the result.
type OrderResponseReconciler interface {
	Reconcile(ctx context.Context, documentNo string, updated []UpdatedLine, added []NewLine) bool
}

// SubscriptionManager owns the connector's ERP change-notification subscription.
type SubscriptionManager interface {
	// EnsureSubscription adopts an existing matching subscription or creates one.
	EnsureSubscription(ctx context.Context) error

	// Unsubscribe deletes the held subscription, if any. The local reference
	// is cleared whatever the outcome.
	Unsubscribe(ctx context.Context) error

	// Held returns the subscription currently held.
	Held() (Subscription, bool)
}

// IdempotencyStore records processed webhook message IDs.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases resources held by the store.
	Close() error
}
