package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DeliveryOutcomeDelivered = "delivered"
	DeliveryOutcomeFailed    = "failed"
	DeliveryOutcomeTimeout   = "timeout"

	EmitSkipReasonAlreadyEmitted = "already_emitted"
	EmitSkipReasonMissing        = "invoice_missing"
	EmitSkipReasonShutdown       = "shutdown"
)

// EmitterMetrics captures webhook emission health signals.
type EmitterMetrics struct {
	armedTimers      prometheus.Gauge
	emissions        *prometheus.CounterVec
	emissionsSkipped *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	deliveryDuration prometheus.Observer
}

var (
	emitterMetricsOnce sync.Once
	emitterMetrics     *EmitterMetrics
)

// Emitter returns the singleton emitter metrics registry.
func Emitter() *EmitterMetrics {
	return EmitterWithConfig(Config{})
}

// EmitterWithConfig returns the singleton emitter metrics registry using config labels.
func EmitterWithConfig(cfg Config) *EmitterMetrics {
	emitterMetricsOnce.Do(func() {
		emitterMetrics = newEmitterMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return emitterMetrics
}

// ResetEmitterMetricsForTest resets the emitter metrics singleton for tests.
func ResetEmitterMetricsForTest() {
	emitterMetricsOnce = sync.Once{}
	emitterMetrics = nil
}

func newEmitterMetrics(registerer prometheus.Registerer, cfg Config) *EmitterMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	armedTimers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "mockpay_emitter_armed_timers",
		Help:        "Delayed emission tasks currently armed.",
		ConstLabels: constLabels,
	})
	emissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "mockpay_emitter_emissions_total",
		Help:        "Invoice status emissions by terminal status.",
		ConstLabels: constLabels,
	}, []string{"status"})
	emissionsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "mockpay_emitter_emissions_skipped_total",
		Help:        "Emission tasks skipped by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "mockpay_webhook_deliveries_total",
		Help:        "Webhook delivery attempts by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	deliveryDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "mockpay_webhook_delivery_duration_seconds",
		Help:        "Webhook delivery latency including receiver time.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(armedTimers, emissions, emissionsSkipped, deliveries, deliveryDuration)

	return &EmitterMetrics{
		armedTimers:      armedTimers,
		emissions:        emissions,
		emissionsSkipped: emissionsSkipped,
		deliveries:       deliveries,
		deliveryDuration: deliveryDuration,
	}
}

// IncArmed tracks a newly armed emission timer.
func (m *EmitterMetrics) IncArmed() {
	if m == nil {
		return
	}
	m.armedTimers.Inc()
}

// DecArmed tracks an emission timer leaving the arena.
func (m *EmitterMetrics) DecArmed() {
	if m == nil {
		return
	}
	m.armedTimers.Dec()
}

// IncEmission counts a completed status transition.
func (m *EmitterMetrics) IncEmission(status string) {
	if m == nil {
		return
	}
	m.emissions.WithLabelValues(strings.TrimSpace(status)).Inc()
}

// IncEmissionSkipped counts an emission task that fired but did nothing.
func (m *EmitterMetrics) IncEmissionSkipped(reason string) {
	if m == nil {
		return
	}
	m.emissionsSkipped.WithLabelValues(strings.TrimSpace(reason)).Inc()
}

// ObserveDelivery records a delivery attempt outcome and latency.
func (m *EmitterMetrics) ObserveDelivery(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(strings.TrimSpace(outcome)).Inc()
	m.deliveryDuration.Observe(d.Seconds())
}
