package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/milan604/buffer-go/pkg/observability"
	middleware "github.com/milan604/buffer-go/pkg/server/middleware"
	"github.com/milan604/buffer-go/pkg/version"
)

// NewEngine creates a Gin engine with the middleware chain in a fixed order.
func NewEngine(opts ...EngineOption) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	var opt engineOptions
	for _, o := range opts {
		o(&opt)
	}

	logMgr := opt.logger
	if logMgr == nil {
		logMgr = logger.MustNewDefaultLogger()
	}

	// Recovery first so panics anywhere below it are rendered.
	if opt.recovery {
		engine.Use(middleware.RecoveryMiddleware(logMgr))
	}
	if opt.tracing {
		engine.Use(observability.GinMiddleware(opt.serviceName))
	}
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.AccessLoggerMiddleware(logMgr))
	engine.Use(middleware.AppLoggerMiddleware(logMgr))

	if opt.corsConfig.Enabled {
		engine.Use(middleware.CORSMiddleware(opt.corsConfig))
	}
	if opt.prometheus != nil {
		prom := middleware.NewPrometheusCollector(opt.prometheus, "/metrics")
		engine.Use(prom.PrometheusMiddleware())
		prom.RegisterMetricsEndpoint(engine)
	}
	if opt.rateLimitConfig != nil && opt.rateLimitConfig.Enabled {
		engine.Use(opt.rateLimitConfig.Middleware())
	}
	if opt.validator != nil {
		engine.Use(middleware.ValidatorMiddleware(opt.validator))
	}

	engine.Use(middleware.ErrorHandlerMiddleware())

	for _, m := range opt.addMiddleware {
		engine.Use(m)
	}

	return engine
}

func resolveAddress(so *startOptions) string {
	if so.addr != "" {
		return so.addr
	}
	if so.cfg != nil {
		host := so.cfg.GetStringD("server.host", "0.0.0.0")
		port := so.cfg.GetIntD("server.port", 8080)
		return net.JoinHostPort(host, fmt.Sprint(port))
	}
	return ":8080"
}

func logStartup(l logger.LogManager, addr string, tls bool) {
	info := version.Info()
	l.With("version", info["version"], "commit", info["commit"], "tls", tls).
		InfoF("%s listening on %s", info["name"], addr)
}

func serve(srv *http.Server, ln net.Listener, so *startOptions) error {
	if so.tlsCertFile != "" && so.tlsKeyFile != "" {
		for _, f := range []string{so.tlsCertFile, so.tlsKeyFile} {
			if _, err := os.Stat(f); err != nil {
				_ = ln.Close()
				return fmt.Errorf("tls file: %w", err)
			}
		}
		logStartup(so.logger, srv.Addr, true)
		return srv.ServeTLS(ln, so.tlsCertFile, so.tlsKeyFile)
	}
	logStartup(so.logger, srv.Addr, false)
	return srv.Serve(ln)
}

// Start runs the HTTP server until ctx is cancelled or the process receives
// SIGINT or SIGTERM, then shuts down gracefully.
func Start(ctx context.Context, engine *gin.Engine, opts ...StartOption) error {
	so := &startOptions{shutdownTimeout: 15 * time.Second}
	for _, o := range opts {
		o(so)
	}
	if so.logger == nil {
		so.logger = logger.NewNop()
	}

	addr := resolveAddress(so)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		so.logger.ErrorF("listen on %s: %v", addr, err)
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(srv, ln, so)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		so.logger.ErrorF("serve: %v", err)
		return err
	case <-ctx.Done():
	}

	so.logger.InfoF("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), so.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		so.logger.ErrorF("server shutdown error: %v", err)
		return err
	}
	so.logger.InfoF("server stopped gracefully")
	return nil
}
