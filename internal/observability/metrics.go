package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"outagewatch/internal/types"
)

const namespace = "outagewatch"

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	TrainingRuns     *prometheus.CounterVec // labels: outcome
	TrainingDuration prometheus.Histogram
	Predictions      *prometheus.CounterVec // labels: tier
	AlertDeliveries  *prometheus.CounterVec // labels: channel, result
	WeatherFetches   *prometheus.CounterVec // labels: result

	// HTTP metrics.
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route
}

var _ Recorder = (*Metrics)(nil)

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TrainingRuns,
		m.TrainingDuration,
		m.Predictions,
		m.AlertDeliveries,
		m.WeatherFetches,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Model training attempts by outcome.",
		}, []string{"outcome"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of successful training runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Risk assessments by tier.",
		}, []string{"tier"}),
		AlertDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_deliveries_total",
			Help:      "Alert delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetches_total",
			Help:      "Current-conditions lookups by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
	}
}

// TrainingRun counts a run and, on success, observes its duration.
func (m *Metrics) TrainingRun(_ context.Context, outcome string, d time.Duration) {
	m.TrainingRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.TrainingDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) Prediction(_ context.Context, tier types.RiskTier) {
	m.Predictions.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) AlertDelivery(_ context.Context, channel types.AlertChannel, sent bool) {
	m.AlertDeliveries.WithLabelValues(string(channel), resultLabel(sent)).Inc()
}

func (m *Metrics) WeatherFetch(_ context.Context, ok bool) {
	m.WeatherFetches.WithLabelValues(resultLabel(ok)).Inc()
}
