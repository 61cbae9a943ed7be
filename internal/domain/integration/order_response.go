package integration

import "github.com/shopspring/decimal"

// LineTypeItem is the ERP line type for item lines.
const LineTypeItem = "Item"

// UpdatedLine is a mutation of an existing ERP line, sent as a PATCH body.
type UpdatedLine struct {
	LineNo              int             `json:"Line_No"`
	Quantity            decimal.Decimal `json:"Quantity"`
	DirectUnitCost      decimal.Decimal `json:"Direct_Unit_Cost"`
	LineDiscountPercent decimal.Decimal `json:"Line_Discount_Percent"`
	PromisedReceiptDate Date            `json:"Promised_Receipt_Date"`
}

// NewLine is a line proposed by the supplier that does not exist in the ERP yet.
// It never carries a line number; one is assigned at insertion time.
type NewLine struct {
	DocumentType        string          `json:"Document_Type"`
	DocumentNo          string          `json:"Document_No"`
	Type                string          `json:"Type"`
	No                  string          `json:"No"`
	Quantity            decimal.Decimal `json:"Quantity"`
	DirectUnitCost      decimal.Decimal `json:"Direct_Unit_Cost"`
	LineDiscountPercent decimal.Decimal `json:"Line_Discount_Percent"`
	PromisedReceiptDate Date            `json:"Promised_Receipt_Date"`
}

// At returns the POST body for inserting the line at lineNo.
func (n NewLine) At(lineNo int) PositionedNewLine {
	return PositionedNewLine{NewLine: n, LineNo: lineNo}
}

// PositionedNewLine is a NewLine with its assigned line number.
type PositionedNewLine struct {
	NewLine
	LineNo int `json:"Line_No"`
}

// OrderResponse is the set of ERP mutations derived from one Tradecloud event.
type OrderResponse struct {
	DocumentNo   string
	UpdatedLines []UpdatedLine
	NewLines     []NewLine
}

// IsEmpty reports whether the response carries no mutations.
func (r OrderResponse) IsEmpty() bool {
	return len(r.UpdatedLines) == 0 && len(r.NewLines) == 0
}
