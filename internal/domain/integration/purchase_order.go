package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The ERP and Tradecloud both expect JSON numbers for amounts.
	decimal.MarshalJSONWithoutQuotes = true
}

// DocumentTypeOrder is the only document type the connector handles.
const DocumentTypeOrder = "Order"

// LineNoStep is the spacing the ERP uses between consecutive line numbers.
const LineNoStep = 10

// OrderMetadata is the API v2.0 view of a purchase order header.
type OrderMetadata struct {
	ETag                 string    `json:"@odata.etag"`
	ID                   string    `json:"id"`
	Number               string    `json:"number"`
	Status               string    `json:"status"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
}

// NormalizedStatus returns the status folded onto OrderStatus.
func (m OrderMetadata) NormalizedStatus() OrderStatus {
	return NormalizeAPIStatus(m.Status)
}

// PurchaseOrder is the OData view of a purchase order header.
type PurchaseOrder struct {
	ETag                    string `json:"@odata.etag"`
	DocumentType            string `json:"Document_Type"`
	No                      string `json:"No"`
	DocumentDate            Date   `json:"Document_Date"`
	PostingDate             Date   `json:"Posting_Date"`
	OrderDate               Date   `json:"Order_Date"`
	BuyFromVendorNo         string `json:"Buy_from_Vendor_No"`
	BuyFromContactEmail     string `json:"BuyFromContactEmail"`
	YourReference           string `json:"Your_Reference"`
	PurchaserCode           string `json:"Purchaser_Code"`
	Status                  string `json:"Status"`
	PaymentTermsCode        string `json:"Payment_Terms_Code"`
	ShipmentMethodCode      string `json:"Shipment_Method_Code"`
	ShipToCode              string `json:"Ship_to_Code"`
	LocationCode            string `json:"Location_Code"`
	ShipToName              string `json:"Ship_to_Name"`
	ShipToAddress           string `json:"Ship_to_Address"`
	ShipToAddress2          string `json:"Ship_to_Address_2"`
	ShipToCity              string `json:"Ship_to_City"`
	ShipToPostCode          string `json:"Ship_to_Post_Code"`
	ShipToCountryRegionCode string `json:"Ship_to_Country_Region_Code"`
}

// NormalizedStatus returns the status folded onto OrderStatus.
func (o PurchaseOrder) NormalizedStatus() OrderStatus {
	return NormalizeODataStatus(o.Status)
}

// PurchaseOrderLine is the OData view of a purchase order line.
type PurchaseOrderLine struct {
	ETag                 string          `json:"@odata.etag"`
	DocumentType         string          `json:"Document_Type"`
	DocumentNo           string          `json:"Document_No"`
	LineNo               int             `json:"Line_No"`
	Type                 string          `json:"Type,omitempty"`
	No                   string          `json:"No"`
	Description          string          `json:"Description"`
	Description2         string          `json:"Description_2"`
	Quantity             decimal.Decimal `json:"Quantity"`
	UnitOfMeasureCode    string          `json:"Unit_of_Measure_Code"`
	DirectUnitCost       decimal.Decimal `json:"Direct_Unit_Cost"`
	LineDiscountPercent  decimal.Decimal `json:"Line_Discount_Percent"`
	RequestedReceiptDate Date            `json:"Requested_Receipt_Date"`
	PromisedReceiptDate  Date            `json:"Promised_Receipt_Date"`
	ProdOrderNo          string          `json:"Prod_Order_No"`
}

// ReceiptDate is the promised receipt date when set, otherwise the requested one.
// ok is false when neither is set.
func (l PurchaseOrderLine) ReceiptDate() (Date, bool) {
	if l.PromisedReceiptDate.IsSet() {
		return l.PromisedReceiptDate, true
	}
	if l.RequestedReceiptDate.IsSet() {
		return l.RequestedReceiptDate, true
	}
	return Date{}, false
}

// PurchaseOrderLines is the OData collection envelope for order lines.
type PurchaseOrderLines struct {
	Value []PurchaseOrderLine `json:"value"`
}

// FindLine returns the line with the given number.
func (ls PurchaseOrderLines) FindLine(lineNo int) (PurchaseOrderLine, bool) {
	for _, l := range ls.Value {
		if l.LineNo == lineNo {
			return l, true
		}
	}
	return PurchaseOrderLine{}, false
}

// NextLineNoForItem returns the highest line number carrying itemNo plus
// LineNoStep. ok is false when no line carries that item.
func (ls PurchaseOrderLines) NextLineNoForItem(itemNo string) (int, bool) {
	highest, found := 0, false
	for _, l := range ls.Value {
		if l.No != itemNo {
			continue
		}
		if !found || l.LineNo > highest {
			highest = l.LineNo
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return highest + LineNoStep, true
}
