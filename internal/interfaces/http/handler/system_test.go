package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/dto"
)

type stubSubscriptions struct {
	sub  integration.Subscription
	held bool
}

func (s stubSubscriptions) Held() (integration.Subscription, bool) { return s.sub, s.held }

func decodeHealth(t *testing.T, body []byte) (dto.Response, dto.HealthResponse) {
	t.Helper()
	var envelope struct {
		dto.Response
		Data dto.HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Response, envelope.Data
}

func TestSystemHandler_Hello(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewSystemHandler(SystemHandlerConfig{
		ConnectorBaseURL: "https://connector.example.com",
		Logger:           zap.New(core),
	})

	w := perform(h, http.MethodGet, "/hello", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Tradecloud One Business Central Connector", w.Body.String())

	entries := logs.FilterMessage("Hello").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://connector.example.com", entries[0].ContextMap()["connector_base_url"])
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler(SystemHandlerConfig{
		Version:       "1.2.3",
		Subscriptions: stubSubscriptions{sub: integration.Subscription{SubscriptionID: "sub-1"}, held: true},
		Checks: map[string]HealthCheck{
			"idempotency": func(context.Context) error { return nil },
		},
	})

	w := perform(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp, health := decodeHealth(t, w.Body.Bytes())
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.SubscriptionHeld)
	assert.Equal(t, "sub-1", health.SubscriptionID)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, map[string]string{"idempotency": "ok"}, health.Checks)
}

func TestSystemHandler_HealthUnhealthy(t *testing.T) {
	h := NewSystemHandler(SystemHandlerConfig{
		Subscriptions: stubSubscriptions{},
		Checks: map[string]HealthCheck{
			"idempotency": func(context.Context) error { return errors.New("redis: connection refused") },
		},
	})

	w := perform(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp, health := decodeHealth(t, w.Body.Bytes())
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeUnavailable, resp.Error.Code)
	assert.Equal(t, "unhealthy", health.Status)
	assert.False(t, health.SubscriptionHeld)
	assert.Equal(t, "dev", health.Version)
}
