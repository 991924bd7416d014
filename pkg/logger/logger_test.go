package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	l, err := NewLogger(LoggerOptions{Level: "info"})
	require.NoError(t, err)
	assert.Equal(t, "info", l.Level())

	require.NoError(t, l.SetLogLevel("debug"))
	assert.Equal(t, "debug", l.Level())

	assert.Error(t, l.SetLogLevel("chatty"))
	assert.Equal(t, "debug", l.Level())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := NewLogger(LoggerOptions{Level: "loud"})
	require.NoError(t, err)
	assert.Equal(t, "info", l.Level())
}

func TestContextFieldsAreLogged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	l, err := NewLogger(LoggerOptions{Level: "debug", Encoding: "json", OutputPaths: []string{path}, Name: "buffer"})
	require.NoError(t, err)

	ctx := WithEndpoint(WithRequestID(context.Background(), "req-1"), "/profiles/:id")
	l.InfoFCtx(ctx, "called %s", "profiles")
	require.NoError(t, l.Sync())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(out)
	assert.Contains(t, line, `"request_id":"req-1"`)
	assert.Contains(t, line, `"endpoint":"/profiles/:id"`)
	assert.Contains(t, line, `"logger":"buffer"`)
	assert.Contains(t, line, `"msg":"called profiles"`)
}

type tenantKey struct{}

func TestRegisterContextKey(t *testing.T) {
	RegisterContextKey(tenantKey{}, "tenant")
	t.Cleanup(func() { UnregisterContextKey(tenantKey{}) })

	fields := withContext(context.WithValue(context.Background(), tenantKey{}, "acme"))
	assert.Equal(t, []any{"tenant", "acme"}, fields)
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.With("k", "v").ErrorF("ignored %d", 1)
	assert.NoError(t, l.Sync())
	assert.True(t, strings.EqualFold(l.Level(), "fatal"))
}
