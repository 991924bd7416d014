package observability

import (
	"context"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
)

// PromMetrics implements MetricsIface on a Prometheus registerer so measurements
// show up on the /metrics endpoint. Label names are fixed by the first
// measurement of each metric; later measurements must carry the same keys.
type PromMetrics struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPromMetrics(reg prometheus.Registerer, namespace string) *PromMetrics {
	return &PromMetrics{
		reg:        reg,
		namespace:  namespace,
		counters:   map[string]*prometheus.CounterVec{},
		gauges:     map[string]*prometheus.GaugeVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
}

var promNameReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_")

func promName(s string) string { return promNameReplacer.Replace(s) }

func splitAttrs(attrs []attribute.KeyValue) ([]string, []string) {
	names := make([]string, len(attrs))
	values := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = promName(string(a.Key))
		values[i] = a.Value.Emit()
	}
	return names, values
}

func (p *PromMetrics) IncrementCounter(_ context.Context, name string, attrs ...attribute.KeyValue) {
	labels, values := splitAttrs(attrs)
	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      promName(name) + "_total",
			Help:      "Counter for " + name,
		}, labels)
		if err := p.reg.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.counters[name] = vec
	}
	p.mu.Unlock()
	if c, err := vec.GetMetricWithLabelValues(values...); err == nil {
		c.Inc()
	}
}

func (p *PromMetrics) RecordGauge(_ context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	labels, values := splitAttrs(attrs)
	p.mu.Lock()
	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      promName(name),
			Help:      "Gauge for " + name,
		}, labels)
		if err := p.reg.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.gauges[name] = vec
	}
	p.mu.Unlock()
	if g, err := vec.GetMetricWithLabelValues(values...); err == nil {
		g.Set(value)
	}
}

func (p *PromMetrics) RecordHistogram(_ context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	labels, values := splitAttrs(attrs)
	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      promName(name),
			Help:      "Histogram for " + name,
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, labels)
		if err := p.reg.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.histograms[name] = vec
	}
	p.mu.Unlock()
	if h, err := vec.GetMetricWithLabelValues(values...); err == nil {
		h.Observe(value)
	}
}
