package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	r := gin.New()
	r.Use(HTTPMetrics(meter, zap.NewNop()))
	r.POST("/tc/single-delivery-order-event", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodPost, "/tc/single-delivery-order-event", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	routes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_server_request_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				route, _ := dp.Attributes.Value("http.route")
				routes[route.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"/tc/single-delivery-order-event": 1, "unknown": 1}, routes)
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	r := gin.New()
	r.Use(HTTPMetrics(nil, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func tracedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := gin.New()
	r.Use(RequestID())
	r.Use(Tracing(TracingConfig{ServiceName: "bc-connector", Enabled: true, Filter: SkipHealth, TracerProvider: tp}))
	r.Use(SpanEnricher())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/bc/purchase-order", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r, recorder
}

func TestTracing(t *testing.T) {
	r, recorder := tracedEngine(t)

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	serve(r, httptest.NewRequest(http.MethodPost, "/bc/purchase-order", nil))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	var requestID string
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "request_id" {
			requestID = kv.Value.AsString()
		}
	}
	assert.NotEmpty(t, requestID)
}

func TestTracing_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(Tracing(TracingConfig{}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestProfiling(t *testing.T) {
	r := gin.New()
	r.Use(Profiling(true, "/health"))
	calls := 0
	r.GET("/health", func(c *gin.Context) { calls++ })
	r.GET("/hello", func(c *gin.Context) { calls++ })

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/hello", nil))
	assert.Equal(t, 2, calls)
}
