package businesscentral

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/httpexec"
)

const (
	subscriptionsPath = "/tenant/production/api/v2.0/subscriptions"
	matchingSub       = `{"@odata.etag":"W/\"s1\"","subscriptionId":"sub-1","notificationUrl":"https://connector.example.com/bc/purchase-order","resource":"api/v2.0/companies(c0ffee)/purchaseOrders","expirationDateTime":"2024-01-04T10:00:00Z"}`
	otherSub          = `{"@odata.etag":"W/\"s0\"","subscriptionId":"sub-0","notificationUrl":"https://elsewhere.example.com/hook","resource":"api/v2.0/companies(c0ffee)/purchaseOrders"}`
)

func newSubscriptionClient(t *testing.T, cfg *Config) *SubscriptionClient {
	return NewSubscriptionClient(cfg, httpexec.New(staticToken{}), zaptest.NewLogger(t))
}

func TestSubscriptionClient_AdoptsExisting(t *testing.T) {
	fake, cfg := newFakeBC(t)
	fake.respond(http.MethodGet, subscriptionsPath, `{"value":[`+otherSub+`,`+matchingSub+`]}`)
	client := newSubscriptionClient(t, cfg)

	require.NoError(t, client.EnsureSubscription(context.Background()))

	held, ok := client.Held()
	require.True(t, ok)
	assert.Equal(t, "sub-1", held.SubscriptionID)
	assert.Equal(t, `W/"s1"`, held.ETag)
	for _, req := range fake.recorded() {
		assert.NotEqual(t, http.MethodPost, req.Method)
	}
}

func TestSubscriptionClient_CreatesWhenMissing(t *testing.T) {
	fake, cfg := newFakeBC(t)
	fake.respond(http.MethodGet, subscriptionsPath, `{"value":[`+otherSub+`]}`)
	fake.respond(http.MethodPost, subscriptionsPath, matchingSub)
	client := newSubscriptionClient(t, cfg)

	require.NoError(t, client.EnsureSubscription(context.Background()))

	reqs := fake.recorded()
	require.Len(t, reqs, 2)
	create := reqs[1]
	assert.Equal(t, http.MethodPost, create.Method)
	assert.Empty(t, create.IfMatch)
	assert.Equal(t, "https://connector.example.com/bc/purchase-order", create.Body["notificationUrl"])
	assert.Equal(t, "api/v2.0/companies(c0ffee)/purchaseOrders", create.Body["resource"])
	assert.Equal(t, "s3cret", create.Body["clientState"])

	held, ok := client.Held()
	require.True(t, ok)
	assert.Equal(t, "sub-1", held.SubscriptionID)
}

func TestSubscriptionClient_EnsureIsIdempotent(t *testing.T) {
	fake, cfg := newFakeBC(t)
	fake.respond(http.MethodGet, subscriptionsPath, `{"value":[`+matchingSub+`]}`)
	client := newSubscriptionClient(t, cfg)

	require.NoError(t, client.EnsureSubscription(context.Background()))
	require.NoError(t, client.EnsureSubscription(context.Background()))

	held, _ := client.Held()
	assert.Equal(t, "sub-1", held.SubscriptionID)
	assert.Len(t, fake.recorded(), 2)
}

func TestSubscriptionClient_ListFailure(t *testing.T) {
	_, cfg := newFakeBC(t)
	client := newSubscriptionClient(t, cfg)

	err := client.EnsureSubscription(context.Background())
	assert.ErrorIs(t, err, integration.ErrSubscriptionFailed)
	_, ok := client.Held()
	assert.False(t, ok)
}

func TestSubscriptionClient_Unsubscribe(t *testing.T) {
	fake, cfg := newFakeBC(t)
	fake.respond(http.MethodGet, subscriptionsPath, `{"value":[`+matchingSub+`]}`)
	fake.respond(http.MethodDelete, subscriptionsPath+"('sub-1')", ``)
	client := newSubscriptionClient(t, cfg)
	ctx := context.Background()

	require.NoError(t, client.EnsureSubscription(ctx))
	require.NoError(t, client.Unsubscribe(ctx))

	reqs := fake.recorded()
	last := reqs[len(reqs)-1]
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, subscriptionsPath+"('sub-1')", last.Path)
	assert.Equal(t, `W/"s1"`, last.IfMatch)

	_, ok := client.Held()
	assert.False(t, ok)

	require.NoError(t, client.Unsubscribe(ctx))
	assert.Len(t, fake.recorded(), len(reqs))
}

func TestSubscriptionClient_UnsubscribeFailureClearsReference(t *testing.T) {
	fake, cfg := newFakeBC(t)
	fake.respond(http.MethodGet, subscriptionsPath, `{"value":[`+matchingSub+`]}`)
	client := newSubscriptionClient(t, cfg)
	ctx := context.Background()

	require.NoError(t, client.EnsureSubscription(ctx))

	err := client.Unsubscribe(ctx)
	assert.ErrorIs(t, err, integration.ErrSubscriptionFailed)
	_, ok := client.Held()
	assert.False(t, ok)
}
