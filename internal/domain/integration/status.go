package integration

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OrderStatus is the normalized approval state of an ERP purchase order.
type OrderStatus string

const (
	OrderStatusDraft    OrderStatus = "DRAFT"
	OrderStatusInReview OrderStatus = "IN_REVIEW"
	OrderStatusReleased OrderStatus = "RELEASED"
	OrderStatusUnknown  OrderStatus = "UNKNOWN"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsEditable reports whether the ERP accepts line mutations in this state.
func (s OrderStatus) IsEditable() bool {
	return s == OrderStatusDraft
}

var statusFolder = cases.Fold()

func foldStatus(raw string) string {
	return statusFolder.String(strings.Join(strings.Fields(raw), " "))
}

// NormalizeAPIStatus maps the API v2.0 spelling ("Draft", "In Review", "Open").
// On that surface "Open" means the order has been released.
func NormalizeAPIStatus(raw string) OrderStatus {
	switch foldStatus(raw) {
	case "draft":
		return OrderStatusDraft
	case "in review", "inreview", "pending approval":
		return OrderStatusInReview
	case "open", "released":
		return OrderStatusReleased
	default:
		return OrderStatusUnknown
	}
}

// NormalizeODataStatus maps the OData spelling ("Open", "In Review", "Released").
// On that surface "Open" is the editable state.
func NormalizeODataStatus(raw string) OrderStatus {
	switch foldStatus(raw) {
	case "open", "draft":
		return OrderStatusDraft
	case "in review", "inreview", "pending approval", "pending prepayment":
		return OrderStatusInReview
	case "released":
		return OrderStatusReleased
	default:
		return OrderStatusUnknown
	}
}

// Display renders the status for humans, e.g. "In Review".
func (s OrderStatus) Display() string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(s)), "_", " "))
}
