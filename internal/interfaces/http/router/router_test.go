package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appintegration "github.com/tradecloud/bc-connector/internal/application/integration"
	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/handler"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/middleware"
)

type nopForwarder struct{}

func (nopForwarder) SendOrder(context.Context, string) (*appintegration.SendResult, error) {
	return &appintegration.SendResult{Outcome: appintegration.SendOutcomeSkippedStatus}, nil
}

type nopEvents struct{}

func (nopEvents) HandleEvent(context.Context, *integration.OrderEventEnvelope) (*appintegration.ResponseResult, error) {
	return &appintegration.ResponseResult{Outcome: appintegration.ResponseOutcomeApplied}, nil
}

func newEngine(t *testing.T, cfg Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg.Logger = zaptest.NewLogger(t)

	r, err := NewRouter(cfg)
	require.NoError(t, err)
	r.RegisterSystem(handler.NewSystemHandler(handler.SystemHandlerConfig{}))
	r.RegisterWebhooks(
		handler.NewBCWebhookHandler(nopForwarder{}, "secret", cfg.Logger),
		handler.NewTCWebhookHandler(nopEvents{}, "token", cfg.Logger),
	)
	return r.Setup()
}

func TestRouter_Routes(t *testing.T) {
	engine := newEngine(t, Config{ServiceName: "bc-connector"})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/hello", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, handler.BCWebhookPath, http.StatusOK},
		{http.MethodGet, handler.TCWebhookPath, http.StatusOK},
		{http.MethodDelete, handler.TCWebhookPath, http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/products", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestRouter_WebhookLimits(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	engine := newEngine(t, Config{MaxBodySize: 16, RateLimiter: limiter})

	post := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusRequestEntityTooLarge, post(handler.BCWebhookPath, `{"value":[],"padding":"xxxxxxxx"}`))
	assert.Equal(t, http.StatusOK, post(handler.BCWebhookPath, `{"value":[]}`))
	assert.Equal(t, http.StatusTooManyRequests, post(handler.BCWebhookPath, `{"value":[]}`))

	// System routes are not rate limited.
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
