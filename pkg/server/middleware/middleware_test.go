package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/apperr"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRequestIDGeneratedAndPropagated(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	var seen any
	engine.GET("/", func(c *gin.Context) {
		seen = c.Request.Context().Value(logger.RequestIDKey)
		c.Status(http.StatusOK)
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))

	id := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, seen)
}

func TestRequestIDKeepsIncoming(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	assert.Equal(t, "abc-123", serve(engine, req).Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", maxIncomingRequestID+1))
	assert.NotEqual(t, strings.Repeat("x", maxIncomingRequestID+1), serve(engine, req).Header().Get(HeaderRequestID))
}

func TestErrorHandlerRendersLastError(t *testing.T) {
	engine := gin.New()
	engine.Use(ErrorHandlerMiddleware())
	engine.GET("/missing", func(c *gin.Context) {
		_ = c.Error(apperr.New(apperr.ErrorCodeNotFound))
	})
	engine.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeEnvelope(t, w).Code)

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decodeEnvelope(t, w).Code)
}

func TestErrorHandlerLeavesWrittenResponse(t *testing.T) {
	engine := gin.New()
	engine.Use(ErrorHandlerMiddleware())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusTeapot, "short and stout")
		_ = c.Error(errors.New("late"))
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestRecoveryRendersEnvelope(t *testing.T) {
	engine := gin.New()
	engine.Use(RecoveryMiddleware(logger.NewNop()))
	engine.GET("/", func(*gin.Context) { panic("kaboom") })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "internal_error", env.Code)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	rl := NewRateLimitConfig(true, 1, 2, 0)
	engine := gin.New()
	engine.Use(rl.Middleware())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		return req
	}

	assert.Equal(t, http.StatusOK, serve(engine, newReq("1.1.1.1")).Code)
	assert.Equal(t, http.StatusOK, serve(engine, newReq("1.1.1.1")).Code)
	w := serve(engine, newReq("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decodeEnvelope(t, w).Code)

	assert.Equal(t, http.StatusOK, serve(engine, newReq("2.2.2.2")).Code)
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimitConfig(true, 1, 1, 0)
	now := time.Now()
	rl.allow("old", now.Add(-time.Hour))
	rl.allow("new", now)

	rl.evict(now.Add(-time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "old")
	assert.Contains(t, rl.clients, "new")
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimitConfig(true, 1, 1, time.Millisecond)
	rl.Stop()
	rl.Stop()
}

func TestCORS(t *testing.T) {
	cfg := DefaultCorsConfig()
	cfg.AllowOrigins = []string{"https://app.example.com"}
	engine := gin.New()
	engine.Use(CORSMiddleware(cfg))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(engine, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc := NewPrometheusCollector(reg, "")
	engine := gin.New()
	engine.Use(pc.PrometheusMiddleware())
	pc.RegisterMetricsEndpoint(engine)
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(engine, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	serve(engine, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	w := serve(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Same(t, reg, pc.Registry())
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}

func TestGetLoggerFallback(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetLogger(c))
	assert.NotNil(t, GetValidator(c))
}
