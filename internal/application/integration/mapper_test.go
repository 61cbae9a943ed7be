package integration

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

func testHeader() *integration.PurchaseOrder {
	return &integration.PurchaseOrder{
		ETag:                    `W/"h1"`,
		DocumentType:            "Order",
		No:                      "106001",
		BuyFromVendorNo:         "V10000",
		BuyFromContactEmail:     "sales@vendor.example",
		YourReference:           "Spring collection",
		Status:                  "Released",
		PaymentTermsCode:        "30D",
		ShipmentMethodCode:      "EXW",
		LocationCode:            "MAIN",
		ShipToName:              "CRONUS NL",
		ShipToAddress:           "Kerkstraat 1",
		ShipToCity:              "Amsterdam",
		ShipToPostCode:          "1000 AA",
		ShipToCountryRegionCode: "NL",
	}
}

func testLine(no int, promised, requested integration.Date) integration.PurchaseOrderLine {
	return integration.PurchaseOrderLine{
		ETag:                 `W/"l"`,
		DocumentType:         "Order",
		DocumentNo:           "106001",
		LineNo:               no,
		Type:                 "Item",
		No:                   "1896-S",
		Description:          "ATHENS Desk",
		Description2:         "oak",
		Quantity:             decimal.NewFromInt(4),
		UnitOfMeasureCode:    "PCS",
		DirectUnitCost:       decimal.RequireFromString("506.6"),
		LineDiscountPercent:  decimal.NewFromInt(5),
		RequestedReceiptDate: requested,
		PromisedReceiptDate:  promised,
		ProdOrderNo:          "PO-1",
	}
}

func TestToCanonical_MapsHeaderAndLines(t *testing.T) {
	promised := integration.NewDate(2024, time.March, 1)
	requested := integration.NewDate(2024, time.February, 1)
	lines := &integration.PurchaseOrderLines{Value: []integration.PurchaseOrderLine{
		testLine(10000, promised, requested),
		testLine(20000, integration.Date{}, requested),
	}}

	order, diags := ToCanonical(testHeader(), lines)
	require.NotNil(t, order)
	assert.Empty(t, diags)

	assert.Equal(t, "V10000", order.Order.SupplierAccountNumber)
	assert.Equal(t, "106001", order.Order.PurchaseOrderNumber)
	assert.Equal(t, "Spring collection", order.Order.Description)
	assert.Equal(t, "MAIN", order.Order.Destination.Code)
	assert.Equal(t, []string{"CRONUS NL"}, order.Order.Destination.Names)
	assert.Equal(t, []string{"Kerkstraat 1"}, order.Order.Destination.AddressLines)
	assert.Equal(t, "NL", order.Order.Destination.CountryCodeISO2)
	require.NotNil(t, order.Order.Terms)
	assert.Equal(t, "EXW", order.Order.Terms.IncotermsCode)
	assert.Equal(t, "30D", order.Order.Terms.PaymentTermsCode)
	require.NotNil(t, order.Order.SupplierContact)
	assert.Equal(t, "sales@vendor.example", order.Order.SupplierContact.Email)
	assert.Equal(t, integration.OrderTypePurchase, order.Order.OrderType)

	require.Len(t, order.Lines, 2)
	first := order.Lines[0]
	assert.Equal(t, "10000", first.Position)
	assert.Equal(t, "1896-S", first.Item.Number)
	assert.Equal(t, "ATHENS Desk", first.Item.Name)
	assert.Equal(t, "oak", first.Item.Description)
	assert.Equal(t, "PCS", first.Item.PurchaseUnitOfMeasureISO)
	assert.Equal(t, "2024-03-01", first.ScheduledDelivery.Date.String())
	assert.Equal(t, "2024-02-01", order.Lines[1].ScheduledDelivery.Date.String())
	assert.True(t, decimal.RequireFromString("506.6").Equal(first.Prices.GrossPrice.PriceInTransactionCurrency.Value))
	assert.Equal(t, "EUR", first.Prices.GrossPrice.PriceInTransactionCurrency.CurrencyISO)
	assert.True(t, decimal.NewFromInt(5).Equal(*first.Prices.DiscountPercentage))
	assert.True(t, decimal.NewFromInt(1).Equal(first.Prices.PriceUnitQuantity))
	assert.Equal(t, "PO-1", first.ProductionNumber)
}

func TestToCanonical_ShipToCodeWins(t *testing.T) {
	header := testHeader()
	header.ShipToCode = "DOCK-2"
	lines := &integration.PurchaseOrderLines{Value: []integration.PurchaseOrderLine{
		testLine(10000, integration.NewDate(2024, time.March, 1), integration.Date{}),
	}}

	order, _ := ToCanonical(header, lines)
	require.NotNil(t, order)
	assert.Equal(t, "DOCK-2", order.Order.Destination.Code)
}

func TestToCanonical_DropsUndatedLines(t *testing.T) {
	lines := &integration.PurchaseOrderLines{Value: []integration.PurchaseOrderLine{
		testLine(10000, integration.Date{}, integration.Date{}),
		testLine(20000, integration.NewDate(2024, time.March, 1), integration.Date{}),
	}}

	order, diags := ToCanonical(testHeader(), lines)
	require.NotNil(t, order)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "20000", order.Lines[0].Position)
	require.Len(t, diags, 1)
	assert.Equal(t, "10000", diags[0].Position)
	assert.Equal(t, ReasonNoReceiptDate, diags[0].Reason)
}

func TestToCanonical_NoAdmissibleLines(t *testing.T) {
	lines := &integration.PurchaseOrderLines{Value: []integration.PurchaseOrderLine{
		testLine(10000, integration.Date{}, integration.Date{}),
	}}

	order, diags := ToCanonical(testHeader(), lines)
	assert.Nil(t, order)
	assert.Len(t, diags, 1)

	order, diags = ToCanonical(testHeader(), &integration.PurchaseOrderLines{})
	assert.Nil(t, order)
	assert.Empty(t, diags)
}

func TestToCanonical_NilHeader(t *testing.T) {
	lines := &integration.PurchaseOrderLines{Value: []integration.PurchaseOrderLine{
		testLine(10000, integration.NewDate(2024, time.March, 1), integration.Date{}),
	}}

	var order *integration.SingleDeliveryOrder
	var diags []Diagnostic
	require.NotPanics(t, func() { order, diags = ToCanonical(nil, lines) })
	assert.Nil(t, order)
	require.Len(t, diags, 1)
	assert.Equal(t, ReasonNoHeader, diags[0].Reason)
}

func TestToCanonical_PropertyUndatedLinesNeverForwarded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("only dated lines are forwarded", prop.ForAll(
		func(dates []int) bool {
			lines := &integration.PurchaseOrderLines{}
			dated := 0
			for i, d := range dates {
				var promised, requested integration.Date
				if d&1 != 0 {
					promised = integration.NewDate(2024, time.March, 1)
				}
				if d&2 != 0 {
					requested = integration.NewDate(2024, time.February, 1)
				}
				if d != 0 {
					dated++
				}
				lines.Value = append(lines.Value, testLine((i+1)*10000, promised, requested))
			}

			order, diags := ToCanonical(testHeader(), lines)
			if dated == 0 {
				return order == nil && len(diags) == len(dates)
			}
			if order == nil || len(order.Lines) != dated || len(diags) != len(dates)-dated {
				return false
			}
			for _, l := range order.Lines {
				if l.ScheduledDelivery == nil || l.ScheduledDelivery.Date == nil || l.ScheduledDelivery.Date.IsZero() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

func statusLine(date time.Time, qty, cost int64, discount *decimal.Decimal) *integration.StatusLine {
	ts := integration.TimestampOf(date)
	return &integration.StatusLine{
		ScheduledDelivery: &integration.ScheduledDelivery{Date: &ts, Quantity: decimal.NewFromInt(qty)},
		Prices: &integration.Prices{
			GrossPrice: &integration.Price{PriceInTransactionCurrency: integration.Money{
				Value: decimal.NewFromInt(cost), CurrencyISO: "EUR",
			}},
			DiscountPercentage: discount,
		},
	}
}

func position(p string) *string { return &p }

func TestToWireMutations_Partition(t *testing.T) {
	discount := decimal.NewFromInt(10)
	event := &integration.OrderEvent{
		BuyerOrder: integration.BuyerOrder{PurchaseOrderNumber: "106001"},
		Lines: []integration.OrderEventLine{
			{
				BuyerLine:  integration.BuyerLine{Position: position("10"), Item: integration.Item{Number: "A100"}},
				StatusLine: statusLine(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 5, 12, &discount),
			},
			{
				BuyerLine:  integration.BuyerLine{Item: integration.Item{Number: "A100"}},
				StatusLine: statusLine(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), 2, 12, nil),
			},
		},
	}

	resp, diags := ToWireMutations(event)
	assert.Empty(t, diags)
	assert.Equal(t, "106001", resp.DocumentNo)

	require.Len(t, resp.UpdatedLines, 1)
	u := resp.UpdatedLines[0]
	assert.Equal(t, 10, u.LineNo)
	assert.True(t, decimal.NewFromInt(5).Equal(u.Quantity))
	assert.True(t, decimal.NewFromInt(12).Equal(u.DirectUnitCost))
	assert.True(t, decimal.NewFromInt(10).Equal(u.LineDiscountPercent))
	assert.Equal(t, "2024-03-04", u.PromisedReceiptDate.String())

	require.Len(t, resp.NewLines, 1)
	n := resp.NewLines[0]
	assert.Equal(t, "Order", n.DocumentType)
	assert.Equal(t, "106001", n.DocumentNo)
	assert.Equal(t, "Item", n.Type)
	assert.Equal(t, "A100", n.No)
	assert.True(t, n.LineDiscountPercent.IsZero())
	assert.Equal(t, "2024-03-05", n.PromisedReceiptDate.String())

	raw, err := json.Marshal(n)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Line_No")
}

func TestToWireMutations_DropsIncompleteLines(t *testing.T) {
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	noPrice := statusLine(date, 1, 1, nil)
	noPrice.Prices.GrossPrice = nil
	noDate := statusLine(date, 1, 1, nil)
	noDate.ScheduledDelivery.Date = nil

	event := &integration.OrderEvent{
		BuyerOrder: integration.BuyerOrder{PurchaseOrderNumber: "106001"},
		Lines: []integration.OrderEventLine{
			{BuyerLine: integration.BuyerLine{Position: position("10")}},
			{BuyerLine: integration.BuyerLine{Position: position("20")}, StatusLine: noPrice},
			{BuyerLine: integration.BuyerLine{Position: position("30")}, StatusLine: noDate},
			{BuyerLine: integration.BuyerLine{Position: position("0040a")}, StatusLine: statusLine(date, 1, 1, nil)},
			{BuyerLine: integration.BuyerLine{}, StatusLine: statusLine(date, 1, 1, nil)},
		},
	}

	resp, diags := ToWireMutations(event)
	assert.True(t, resp.IsEmpty())
	require.Len(t, diags, 5)
	assert.Equal(t, ReasonNoStatusLine, diags[0].Reason)
	assert.Equal(t, ReasonNoGrossPrice, diags[1].Reason)
	assert.Equal(t, ReasonNoScheduledDate, diags[2].Reason)
	assert.Equal(t, ReasonInvalidPosition, diags[3].Reason)
	assert.Equal(t, ReasonNoItemNumber, diags[4].Reason)
}

func TestToWireMutations_PropertyPartitionOnPosition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	properties.Property("lines split on buyer position presence", prop.ForAll(
		func(positions []int) bool {
			event := &integration.OrderEvent{BuyerOrder: integration.BuyerOrder{PurchaseOrderNumber: "106001"}}
			withPosition := 0
			for _, p := range positions {
				l := integration.OrderEventLine{
					BuyerLine:  integration.BuyerLine{Item: integration.Item{Number: "X"}},
					StatusLine: statusLine(date, 1, 1, nil),
				}
				if p > 0 {
					s := strconv.Itoa(p)
					l.BuyerLine.Position = &s
					withPosition++
				}
				event.Lines = append(event.Lines, l)
			}

			resp, diags := ToWireMutations(event)
			if len(diags) != 0 || len(resp.UpdatedLines) != withPosition || len(resp.NewLines) != len(positions)-withPosition {
				return false
			}
			i := 0
			for _, p := range positions {
				if p > 0 {
					if resp.UpdatedLines[i].LineNo != p {
						return false
					}
					i++
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100000)),
	))

	properties.TestingRun(t)
}
