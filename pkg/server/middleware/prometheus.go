package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector holds the HTTP metrics of the server and the registry
// exposed on MetricsPath. Other components may register on the same registry.
type PrometheusCollector struct {
	reqCount    *prometheus.CounterVec
	reqDurHist  *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	registry    *prometheus.Registry
	MetricsPath string
}

// NewPrometheusCollector registers HTTP and process metrics on reg. A nil reg
// gets a fresh registry.
func NewPrometheusCollector(reg *prometheus.Registry, metricsPath string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	pc := &PrometheusCollector{
		reqCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		reqDurHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of request durations",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight requests",
		}),
		registry:    reg,
		MetricsPath: metricsPath,
	}

	reg.MustRegister(pc.reqCount, pc.reqDurHist, pc.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return pc
}

// Registry returns the registry served on MetricsPath.
func (pc *PrometheusCollector) Registry() *prometheus.Registry {
	return pc.registry
}

// PrometheusMiddleware returns a gin middleware that collects metrics.
// Unmatched routes share one label value to keep cardinality bounded.
func (pc *PrometheusCollector) PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == pc.MetricsPath {
			c.Next()
			return
		}
		start := time.Now()
		pc.inFlight.Inc()
		defer pc.inFlight.Dec()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		pc.reqCount.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		pc.reqDurHist.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RegisterMetricsEndpoint serves the registry on MetricsPath.
func (pc *PrometheusCollector) RegisterMetricsEndpoint(engine *gin.Engine) {
	engine.GET(pc.MetricsPath, gin.WrapH(promhttp.HandlerFor(pc.registry, promhttp.HandlerOpts{})))
}
