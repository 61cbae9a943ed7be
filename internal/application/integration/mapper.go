package integration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// Diagnostic reports a line the mapper could not carry over.
type Diagnostic struct {
	DocumentNo string `json:"document_no"`
	Position   string `json:"position"`
	Reason     string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s/%s: %s", d.DocumentNo, d.Position, d.Reason)
}

// Diagnostic reasons.
const (
	ReasonNoReceiptDate   = "neither promised nor requested receipt date set"
	ReasonNoStatusLine    = "no status line"
	ReasonNoScheduledDate = "no scheduled delivery date"
	ReasonNoGrossPrice    = "no gross price"
	ReasonInvalidPosition = "position is not a line number"
	ReasonNoItemNumber    = "no item number on new line"
	ReasonNoHeader        = "no order header"
)

// ToCanonical maps an ERP order snapshot onto a single-delivery order.
// Lines without any receipt date are dropped with a diagnostic. When no
// line is left the result is nil, which means there is nothing to send.
// A nil header also yields nil, with a single diagnostic.
func ToCanonical(header *integration.PurchaseOrder, lines *integration.PurchaseOrderLines) (*integration.SingleDeliveryOrder, []Diagnostic) {
	if header == nil {
		return nil, []Diagnostic{{Reason: ReasonNoHeader}}
	}
	var diags []Diagnostic
	var out []integration.Line
	if lines != nil {
		for _, l := range lines.Value {
			line, ok := toCanonicalLine(l)
			if !ok {
				diags = append(diags, Diagnostic{
					DocumentNo: header.No,
					Position:   strconv.Itoa(l.LineNo),
					Reason:     ReasonNoReceiptDate,
				})
				continue
			}
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil, diags
	}

	destinationCode := header.ShipToCode
	if destinationCode == "" {
		destinationCode = header.LocationCode
	}

	order := integration.Order{
		SupplierAccountNumber: header.BuyFromVendorNo,
		PurchaseOrderNumber:   header.No,
		Description:           header.YourReference,
		Destination: integration.Destination{
			Code:            destinationCode,
			Names:           nonEmpty(header.ShipToName),
			AddressLines:    nonEmpty(header.ShipToAddress, header.ShipToAddress2),
			PostalCode:      header.ShipToPostCode,
			City:            header.ShipToCity,
			CountryCodeISO2: header.ShipToCountryRegionCode,
		},
		OrderType: integration.OrderTypePurchase,
	}
	if header.ShipmentMethodCode != "" || header.PaymentTermsCode != "" {
		order.Terms = &integration.Terms{
			IncotermsCode:    header.ShipmentMethodCode,
			PaymentTermsCode: header.PaymentTermsCode,
		}
	}
	if header.BuyFromContactEmail != "" {
		order.SupplierContact = &integration.Contact{Email: header.BuyFromContactEmail}
	}

	return &integration.SingleDeliveryOrder{Order: order, Lines: out}, diags
}

func toCanonicalLine(l integration.PurchaseOrderLine) (integration.Line, bool) {
	date, ok := l.ReceiptDate()
	if !ok {
		return integration.Line{}, false
	}
	scheduled := integration.TimestampOf(date.Time)
	discount := l.LineDiscountPercent

	return integration.Line{
		Position: strconv.Itoa(l.LineNo),
		Item: integration.Item{
			Number:                   l.No,
			Name:                     l.Description,
			Description:              l.Description2,
			PurchaseUnitOfMeasureISO: l.UnitOfMeasureCode,
		},
		ScheduledDelivery: &integration.ScheduledDelivery{
			Date:     &scheduled,
			Quantity: l.Quantity,
		},
		Prices: integration.Prices{
			GrossPrice: &integration.Price{PriceInTransactionCurrency: integration.Money{
				Value:       l.DirectUnitCost,
				CurrencyISO: integration.DefaultCurrencyISO,
			}},
			DiscountPercentage:    &discount,
			PriceUnitOfMeasureISO: l.UnitOfMeasureCode,
			PriceUnitQuantity:     decimal.NewFromInt(1),
		},
		ProductionNumber: l.ProdOrderNo,
	}, true
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// ToWireMutations partitions an order event into ERP line mutations.
// A line with a buyer position updates that ERP line; a line without one
// is new and gets its line number from the reconciler. Lines missing the
// agreed delivery date or gross price are dropped with a diagnostic.
func ToWireMutations(event *integration.OrderEvent) (integration.OrderResponse, []Diagnostic) {
	documentNo := event.DocumentNo()
	resp := integration.OrderResponse{DocumentNo: documentNo}
	var diags []Diagnostic

	for _, l := range event.Lines {
		position := ""
		if l.BuyerLine.Position != nil {
			position = *l.BuyerLine.Position
		}
		drop := func(reason string) {
			diags = append(diags, Diagnostic{DocumentNo: documentNo, Position: position, Reason: reason})
		}

		agreed, reason := agreedTerms(l.StatusLine)
		if reason != "" {
			drop(reason)
			continue
		}

		if l.BuyerLine.Position == nil {
			if l.BuyerLine.Item.Number == "" {
				drop(ReasonNoItemNumber)
				continue
			}
			resp.NewLines = append(resp.NewLines, integration.NewLine{
				DocumentType:        integration.DocumentTypeOrder,
				DocumentNo:          documentNo,
				Type:                integration.LineTypeItem,
				No:                  l.BuyerLine.Item.Number,
				Quantity:            agreed.quantity,
				DirectUnitCost:      agreed.unitCost,
				LineDiscountPercent: agreed.discount,
				PromisedReceiptDate: agreed.date,
			})
			continue
		}

		lineNo, err := strconv.Atoi(strings.TrimSpace(position))
		if err != nil {
			drop(ReasonInvalidPosition)
			continue
		}
		resp.UpdatedLines = append(resp.UpdatedLines, integration.UpdatedLine{
			LineNo:              lineNo,
			Quantity:            agreed.quantity,
			DirectUnitCost:      agreed.unitCost,
			LineDiscountPercent: agreed.discount,
			PromisedReceiptDate: agreed.date,
		})
	}
	return resp, diags
}

type agreedLine struct {
	quantity decimal.Decimal
	unitCost decimal.Decimal
	discount decimal.Decimal
	date     integration.Date
}

func agreedTerms(s *integration.StatusLine) (agreedLine, string) {
	switch {
	case s == nil:
		return agreedLine{}, ReasonNoStatusLine
	case s.ScheduledDelivery == nil || s.ScheduledDelivery.Date == nil || s.ScheduledDelivery.Date.IsZero():
		return agreedLine{}, ReasonNoScheduledDate
	case s.Prices == nil || s.Prices.GrossPrice == nil:
		return agreedLine{}, ReasonNoGrossPrice
	}

	a := agreedLine{
		quantity: s.ScheduledDelivery.Quantity,
		unitCost: s.Prices.GrossPrice.PriceInTransactionCurrency.Value,
		date:     s.ScheduledDelivery.Date.CalendarDate(),
	}
	if s.Prices.DiscountPercentage != nil {
		a.discount = *s.Prices.DiscountPercentage
	}
	return a, ""
}
