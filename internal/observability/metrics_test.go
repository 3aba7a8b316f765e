package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	ok := RequestLabels{Node: "full_node", Method: "GET", Outcome: OutcomeSuccess}
	failed := RequestLabels{Node: "event_server", Method: "GET", Outcome: OutcomeUnreachable}

	m.RecordRequest(ctx, ok)
	m.RecordRequest(ctx, ok)
	m.RecordRequest(ctx, failed)
	m.RecordLatency(ctx, 150*time.Millisecond, ok)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("full_node", "GET", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("event_server", "GET", OutcomeUnreachable)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestNewPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMetrics(reg)
	assert.Error(t, err)
}

func TestNopMetrics(t *testing.T) {
	var m Metrics = NopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordRequest(context.Background(), RequestLabels{})
		m.RecordLatency(context.Background(), time.Second, RequestLabels{})
	})
}
