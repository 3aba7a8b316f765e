package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tron_node"

// Outcome label values besides error kinds.
const (
	OutcomeSuccess     = "success"
	OutcomeUnreachable = "unreachable"
)

// Metrics collects node call metrics.
type Metrics interface {
	RecordRequest(ctx context.Context, labels RequestLabels)
	RecordLatency(ctx context.Context, duration time.Duration, labels RequestLabels)
}

// RequestLabels contains metric dimensions.
type RequestLabels struct {
	Node    string
	Method  string
	Outcome string
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRequest(context.Context, RequestLabels)                {}
func (NopMetrics) RecordLatency(context.Context, time.Duration, RequestLabels) {}

// PrometheusMetrics records node calls as Prometheus series.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Number of HTTP calls made to a node, by outcome.",
		}, []string{"node", "method", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP calls made to a node.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node", "method", "outcome"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordRequest(_ context.Context, labels RequestLabels) {
	m.requests.WithLabelValues(labels.Node, labels.Method, labels.Outcome).Inc()
}

func (m *PrometheusMetrics) RecordLatency(_ context.Context, duration time.Duration, labels RequestLabels) {
	m.latency.WithLabelValues(labels.Node, labels.Method, labels.Outcome).Observe(duration.Seconds())
}
