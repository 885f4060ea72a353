package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchesLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchesLabels(metric *dto.Metric, labels map[string]string) bool {
	got := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestHTTPMetricsRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{ServiceName: "mockpay", Environment: "test"})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/invoices/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/abc", nil))
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/def", nil))

	got := getCounterValue(t, registry, "mockpay_http_requests_total", map[string]string{
		"method":      "GET",
		"route":       "/invoices/:id",
		"status_code": "200",
		"service":     "mockpay",
		"env":         "test",
	})
	require.Equal(t, float64(2), got)
}

func TestHTTPMetricsUnknownRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{})

	r := gin.New()
	r.Use(GinMiddleware(m))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	got := getCounterValue(t, registry, "mockpay_http_requests_total", map[string]string{
		"route":       "unknown",
		"status_code": "404",
	})
	require.Equal(t, float64(1), got)
}

func TestGinMiddlewareNilMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(nil))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEmitterMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newEmitterMetrics(registry, Config{ServiceName: "mockpay", Environment: "test"})

	m.IncArmed()
	m.IncEmission("paid")
	m.IncEmission("paid")
	m.IncEmissionSkipped(EmitSkipReasonAlreadyEmitted)
	m.ObserveDelivery(DeliveryOutcomeDelivered, 25*time.Millisecond)
	m.DecArmed()

	require.Equal(t, float64(2), getCounterValue(t, registry, "mockpay_emitter_emissions_total", map[string]string{
		"status": "paid",
	}))
	require.Equal(t, float64(1), getCounterValue(t, registry, "mockpay_emitter_emissions_skipped_total", map[string]string{
		"reason": EmitSkipReasonAlreadyEmitted,
	}))
	require.Equal(t, float64(1), getCounterValue(t, registry, "mockpay_webhook_deliveries_total", map[string]string{
		"outcome": DeliveryOutcomeDelivered,
	}))
}

func TestEmitterMetricsNilSafe(t *testing.T) {
	var m *EmitterMetrics
	m.IncArmed()
	m.DecArmed()
	m.IncEmission("paid")
	m.IncEmissionSkipped(EmitSkipReasonShutdown)
	m.ObserveDelivery(DeliveryOutcomeFailed, time.Millisecond)
}
