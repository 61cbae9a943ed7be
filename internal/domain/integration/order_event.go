package integration

import "github.com/google/uuid"

// OrderEventEnvelope is the body of a Tradecloud webhook delivery.
//
// Common buyer event names, depending on the portal webhook configuration:
//   - OrderChangesProposalApprovedByBuyer
//   - OrderLinesAcceptedBySupplier
//   - OrderLinesConfirmedBySupplier
//   - OrderLinesRejectedBySupplier
//   - OrderLinesReopenRequestApprovedByBuyer
//   - OrderLinesReopenRequestApprovedBySupplier
//   - OrderResentByBuyer
type OrderEventEnvelope struct {
	EventName string      `json:"eventName"`
	Event     *OrderEvent `json:"singleDeliveryOrderEvent"`
}

// OrderEvent is the order state published by Tradecloud after a supplier
// or buyer action.
type OrderEvent struct {
	OrderID       string           `json:"orderId"`
	BuyerOrder    BuyerOrder       `json:"buyerOrder"`
	SupplierOrder SupplierOrder    `json:"supplierOrder"`
	Lines         []OrderEventLine `json:"lines"`
	Status        EventStatus      `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	Meta          MessageMeta      `json:"meta"`
	LastUpdatedAt Timestamp        `json:"lastUpdatedAt"`
	PortalURL     string           `json:"portalUrl,omitempty"`
}

// DocumentNo is the ERP document number the event applies to.
func (e *OrderEvent) DocumentNo() string {
	return e.BuyerOrder.PurchaseOrderNumber
}

type BuyerOrder struct {
	CompanyID             string `json:"companyId"`
	PurchaseOrderNumber   string `json:"purchaseOrderNumber"`
	SupplierAccountNumber string `json:"supplierAccountNumber"`
}

type SupplierOrder struct {
	CompanyID   string `json:"companyId"`
	Description string `json:"description,omitempty"`
}

// EventStatus carries the process status (Issued, InProgress, Confirmed,
// Rejected, Completed, Cancelled) and the logistics status (Open, Produced,
// ReadyToShip, Shipped, Delivered, Cancelled).
type EventStatus struct {
	ProcessStatus   string `json:"processStatus"`
	LogisticsStatus string `json:"logisticsStatus"`
}

type MessageMeta struct {
	MessageID       uuid.UUID     `json:"messageId"`
	CreatedDateTime Timestamp     `json:"createdDateTime"`
	Source          MessageSource `json:"source"`
}

type MessageSource struct {
	TraceID   uuid.UUID  `json:"traceId"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	CompanyID *uuid.UUID `json:"companyId,omitempty"`
	Origin    string     `json:"origin"`
}

// OrderEventLine is one line of an OrderEvent.
type OrderEventLine struct {
	ID            string       `json:"id"`
	BuyerLine     BuyerLine    `json:"buyerLine"`
	SupplierLine  SupplierLine `json:"supplierLine"`
	StatusLine    *StatusLine  `json:"statusLine,omitempty"`
	Status        EventStatus  `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	LastUpdatedAt Timestamp    `json:"lastUpdatedAt"`
	PortalURL     string       `json:"portalUrl,omitempty"`
}

// BuyerLine is the buyer's side of a line. A nil Position marks a line
// the supplier added.
type BuyerLine struct {
	Position *string `json:"position"`
	Item     Item    `json:"item"`
}

type SupplierLine struct {
	SalesOrderNumber       string `json:"salesOrderNumber,omitempty"`
	SalesOrderLinePosition string `json:"salesOrderLinePosition,omitempty"`
	Description            string `json:"description,omitempty"`
}

// StatusLine is the agreed state of a line.
type StatusLine struct {
	ScheduledDelivery *ScheduledDelivery `json:"scheduledDelivery"`
	Prices            *Prices            `json:"prices"`
}
