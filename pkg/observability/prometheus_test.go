package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestPromMetricsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg, "buffer")
	ctx := context.Background()

	m.IncrementCounter(ctx, "buffer.client.calls", AttrEndpoint.String("/user"), attribute.String("buffer.outcome", "ok"))
	m.IncrementCounter(ctx, "buffer.client.calls", AttrEndpoint.String("/user"), attribute.String("buffer.outcome", "ok"))
	m.IncrementCounter(ctx, "buffer.client.calls", AttrEndpoint.String("/profiles"), attribute.String("buffer.outcome", "api_error"))

	count, err := testutil.GatherAndCount(reg, "buffer_buffer_client_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	vec := m.counters["buffer.client.calls"]
	assert.Equal(t, 2.0, testutil.ToFloat64(vec.WithLabelValues("/user", "ok")))
}

func TestPromMetricsGaugeAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg, "")
	ctx := context.Background()

	m.RecordGauge(ctx, "queue-depth", 4)
	m.RecordGauge(ctx, "queue-depth", 7)
	m.RecordHistogram(ctx, "buffer.client.duration_ms", 42, AttrEndpoint.String("/user"))

	assert.Equal(t, 7.0, testutil.ToFloat64(m.gauges["queue-depth"].WithLabelValues()))
	count, err := testutil.GatherAndCount(reg, "buffer_client_duration_ms")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPromMetricsMismatchedLabelsAreDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg, "")
	ctx := context.Background()

	m.IncrementCounter(ctx, "calls", AttrEndpoint.String("/user"))
	m.IncrementCounter(ctx, "calls")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.counters["calls"].WithLabelValues("/user")))
}

type recordingMetrics struct{ counters []string }

func (r *recordingMetrics) IncrementCounter(_ context.Context, name string, _ ...attribute.KeyValue) {
	r.counters = append(r.counters, name)
}
func (r *recordingMetrics) RecordGauge(context.Context, string, float64, ...attribute.KeyValue)     {}
func (r *recordingMetrics) RecordHistogram(context.Context, string, float64, ...attribute.KeyValue) {}

func TestFanout(t *testing.T) {
	a, b := &recordingMetrics{}, &recordingMetrics{}
	Fanout{a, b}.IncrementCounter(context.Background(), "calls")
	assert.Equal(t, []string{"calls"}, a.counters)
	assert.Equal(t, []string{"calls"}, b.counters)
}
