package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/config"
	"github.com/milan604/buffer-go/pkg/logger"
	middleware "github.com/milan604/buffer-go/pkg/server/middleware"
	"github.com/milan604/buffer-go/pkg/validator"
	"github.com/prometheus/client_golang/prometheus"
)

// StartOption configures Start.
type StartOption func(*startOptions)

type startOptions struct {
	cfg    *config.Config
	logger logger.LogManager

	shutdownTimeout time.Duration

	tlsCertFile string
	tlsKeyFile  string
	addr        string
}

// StartWithConfig reads server.host and server.port from c.
func StartWithConfig(c *config.Config) StartOption {
	return func(o *startOptions) { o.cfg = c }
}

func StartWithLogger(l logger.LogManager) StartOption {
	return func(o *startOptions) { o.logger = l }
}

func StartWithShutdownTimeout(d time.Duration) StartOption {
	return func(o *startOptions) { o.shutdownTimeout = d }
}

// StartWithAddr overrides the listen address (host:port).
func StartWithAddr(addr string) StartOption {
	return func(o *startOptions) { o.addr = addr }
}

func StartWithTLS(certFile, keyFile string) StartOption {
	return func(o *startOptions) {
		o.tlsCertFile = certFile
		o.tlsKeyFile = keyFile
	}
}

// EngineOption configures NewEngine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger          logger.LogManager
	serviceName     string
	recovery        bool
	tracing         bool
	corsConfig      middleware.CorsConfig
	prometheus      *prometheus.Registry
	rateLimitConfig *middleware.RateLimitConfig
	validator       *validator.Validator
	addMiddleware   []gin.HandlerFunc
}

// WithRateLimit enables per-client rate limiting.
func WithRateLimit(cfg *middleware.RateLimitConfig) EngineOption {
	return func(e *engineOptions) { e.rateLimitConfig = cfg }
}

func WithLogger(l logger.LogManager) EngineOption {
	return func(e *engineOptions) { e.logger = l }
}

func WithRecovery(enabled bool) EngineOption {
	return func(e *engineOptions) { e.recovery = enabled }
}

func WithCors(c middleware.CorsConfig) EngineOption {
	return func(e *engineOptions) { e.corsConfig = c }
}

// WithPrometheus serves reg on /metrics along with the HTTP metrics of the engine.
func WithPrometheus(reg *prometheus.Registry) EngineOption {
	return func(e *engineOptions) {
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		e.prometheus = reg
	}
}

// WithTracing starts an otelgin server span for every request.
func WithTracing(serviceName string) EngineOption {
	return func(e *engineOptions) {
		e.tracing = true
		e.serviceName = serviceName
	}
}

func WithValidator(v *validator.Validator) EngineOption {
	return func(e *engineOptions) { e.validator = v }
}

func WithMiddleware(m ...gin.HandlerFunc) EngineOption {
	return func(e *engineOptions) { e.addMiddleware = append(e.addMiddleware, m...) }
}
