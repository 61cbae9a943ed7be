package tradecloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/httpexec"
)

type staticToken struct{}

func (staticToken) System() string     { return "test" }
func (staticToken) RequireToken() bool { return true }
func (staticToken) Acquire(context.Context, httpexec.Token) (httpexec.Grant, error) {
	return httpexec.Grant{AccessToken: "t", ExpiresIn: time.Hour}, nil
}
func (staticToken) Reacquire(context.Context, httpexec.Token) (httpexec.Grant, error) {
	return httpexec.Grant{AccessToken: "t", ExpiresIn: time.Hour}, nil
}

func sampleOrder() *integration.SingleDeliveryOrder {
	date := integration.TimestampOf(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	return &integration.SingleDeliveryOrder{
		Order: integration.Order{
			SupplierAccountNumber: "V10000",
			PurchaseOrderNumber:   "106001",
			Destination:           integration.Destination{Code: "MAIN"},
			OrderType:             integration.OrderTypePurchase,
		},
		Lines: []integration.Line{{
			Position: "10000",
			Item:     integration.Item{Number: "1896-S", Name: "ATHENS Desk", PurchaseUnitOfMeasureISO: "PCS"},
			ScheduledDelivery: &integration.ScheduledDelivery{
				Date:     &date,
				Quantity: decimal.NewFromInt(4),
			},
			Prices: integration.Prices{
				GrossPrice: &integration.Price{PriceInTransactionCurrency: integration.Money{
					Value:       decimal.RequireFromString("506.6"),
					CurrencyISO: "EUR",
				}},
				PriceUnitOfMeasureISO: "PCS",
				PriceUnitQuantity:     decimal.NewFromInt(1),
			},
		}},
	}
}

func TestOrderClient_SubmitOrder(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api-connector/order/single-delivery", r.URL.Path)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	client := NewOrderClient(cfg, httpexec.New(staticToken{}), zaptest.NewLogger(t))

	require.NoError(t, client.SubmitOrder(context.Background(), sampleOrder()))

	order := body["order"].(map[string]any)
	assert.Equal(t, "106001", order["purchaseOrderNumber"])
	assert.Equal(t, "Purchase", order["orderType"])

	line := body["lines"].([]any)[0].(map[string]any)
	delivery := line["scheduledDelivery"].(map[string]any)
	assert.Equal(t, "2024-02-01", delivery["date"])
	assert.Equal(t, float64(4), delivery["quantity"])

	gross := line["prices"].(map[string]any)["grossPrice"].(map[string]any)["priceInTransactionCurrency"].(map[string]any)
	assert.Equal(t, 506.6, gross["value"])
	assert.Equal(t, "EUR", gross["currencyIso"])
}

func TestOrderClient_SubmitOrderRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid supplier"}`))
	}))
	defer server.Close()

	client := NewOrderClient(testConfig(server.URL), httpexec.New(staticToken{}), zaptest.NewLogger(t))

	err := client.SubmitOrder(context.Background(), sampleOrder())
	assert.ErrorIs(t, err, integration.ErrOrderSubmitFailed)
}
