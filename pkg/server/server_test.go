package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/milan604/buffer-go/pkg/config"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAddress(t *testing.T) {
	cfg, err := config.New(config.WithDefaults(map[string]any{
		"server.host": "127.0.0.1",
		"server.port": 9090,
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", resolveAddress(&startOptions{}))
	assert.Equal(t, "127.0.0.1:9090", resolveAddress(&startOptions{cfg: cfg}))

	so := &startOptions{}
	StartWithConfig(cfg)(so)
	StartWithAddr("localhost:7000")(so)
	assert.Equal(t, "localhost:7000", resolveAddress(so))
}

func TestStartStopsWhenContextEnds(t *testing.T) {
	engine := NewEngine(WithLogger(logger.NewNop()))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, engine, StartWithAddr("127.0.0.1:0"), StartWithShutdownTimeout(time.Second))
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartWithMissingTLSFiles(t *testing.T) {
	dir := t.TempDir()
	err := Start(context.Background(), NewEngine(),
		StartWithAddr("127.0.0.1:0"),
		StartWithTLS(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem")),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls file")
}

func TestNewEngineServesRoutes(t *testing.T) {
	engine := NewEngine(WithLogger(logger.NewNop()), WithRecovery(true))
	engine.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}
