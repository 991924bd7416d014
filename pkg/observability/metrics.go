package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsIface records named measurements with attributes.
type MetricsIface interface {
	IncrementCounter(ctx context.Context, name string, attrs ...attribute.KeyValue)
	RecordGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)
}

// Metrics records through an OpenTelemetry meter. Instruments are created on
// first use and reused afterwards.
type Metrics struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
	histograms map[string]metric.Float64Histogram
}

// NewMetrics creates metrics bound to the global meter provider.
func NewMetrics(serviceName string) (MetricsIface, error) {
	return NewMetricsWithMeter(otel.Meter(serviceName)), nil
}

// NewMetricsWithMeter creates metrics on an explicit meter.
func NewMetricsWithMeter(meter metric.Meter) *Metrics {
	return &Metrics{
		meter:      meter,
		counters:   map[string]metric.Int64Counter{},
		gauges:     map[string]metric.Float64Gauge{},
		histograms: map[string]metric.Float64Histogram{},
	}
}

// MustNewMetrics is like NewMetrics but panics on error.
func MustNewMetrics(serviceName string) MetricsIface {
	m, err := NewMetrics(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize metrics: %v", err))
	}
	return m
}

func (m *Metrics) IncrementCounter(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	counter, ok := m.counters[name]
	if !ok {
		var err error
		counter, err = m.meter.Int64Counter(name, metric.WithDescription("Counter for "+name))
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.counters[name] = counter
	}
	m.mu.Unlock()
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	gauge, ok := m.gauges[name]
	if !ok {
		var err error
		gauge, err = m.meter.Float64Gauge(name, metric.WithDescription("Gauge for "+name))
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.gauges[name] = gauge
	}
	m.mu.Unlock()
	gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	histogram, ok := m.histograms[name]
	if !ok {
		var err error
		histogram, err = m.meter.Float64Histogram(name, metric.WithDescription("Histogram for "+name))
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.histograms[name] = histogram
	}
	m.mu.Unlock()
	histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Fanout sends every measurement to each of ms.
type Fanout []MetricsIface

func (f Fanout) IncrementCounter(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	for _, m := range f {
		m.IncrementCounter(ctx, name, attrs...)
	}
}

func (f Fanout) RecordGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	for _, m := range f {
		m.RecordGauge(ctx, name, value, attrs...)
	}
}

func (f Fanout) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	for _, m := range f {
		m.RecordHistogram(ctx, name, value, attrs...)
	}
}
