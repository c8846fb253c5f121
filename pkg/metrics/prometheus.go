package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	invocations  *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		invocations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agripulse_predictor_invocations_total",
				Help: "External predictor invocations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		fallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agripulse_pricing_fallbacks_total",
				Help: "Pricing requests served by the rule engine",
			},
			[]string{"reason"},
		),
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agripulse_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "product"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agripulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agripulse_last_price",
				Help: "Last recorded wholesale price for a product",
			},
			[]string{"product"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agripulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordInvocation records one predictor invocation outcome.
func (r *Recorder) RecordInvocation(operation, outcome string) {
	r.invocations.WithLabelValues(operation, outcome).Inc()
}

// RecordFallback records a pricing request served by the rule engine.
func (r *Recorder) RecordFallback(reason string) {
	r.fallbacks.WithLabelValues(reason).Inc()
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, productID string) {
	r.messagesSent.WithLabelValues(backend, productID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last wholesale price for a product.
func (r *Recorder) RecordLastPrice(productID string, price float64) {
	r.lastPrice.WithLabelValues(productID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
