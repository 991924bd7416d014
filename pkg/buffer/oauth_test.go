package buffer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenPath = "/1/oauth2/token.json"

func newExchangeClient(m *mockService, store TokenStore) *Client {
	sess := NewSession(OAuthConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		CallbackURL:  "https://example.com/callback",
	}, store)
	return NewClient(sess, WithBaseURL(m.srv.URL+"/1"), WithTokenURL(m.srv.URL+tokenPath))
}

func TestExchangeCodeSuccess(t *testing.T) {
	m := newMockService(t)
	m.reply(tokenPath, http.StatusOK, `{"access_token":"abc123"}`)
	store := NewMemoryStore()
	c := newExchangeClient(m, store)
	c.Session().SetAuthorizationCode("the-code")

	require.NoError(t, c.ExchangeCode(context.Background()))

	assert.Equal(t, "abc123", c.Session().AccessToken())
	assert.Equal(t, StateAuthenticated, c.Session().State())
	assert.Equal(t, 1, store.Saves())
	saved, ok, _ := store.LoadToken(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "abc123", saved)

	req := m.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, tokenPath, req.Path)
	assert.Equal(t, "cid", req.Form.Get("client_id"))
	assert.Equal(t, "secret", req.Form.Get("client_secret"))
	assert.Equal(t, "https://example.com/callback", req.Form.Get("redirect_uri"))
	assert.Equal(t, "the-code", req.Form.Get("code"))
	assert.Equal(t, "authorization_code", req.Form.Get("grant_type"))
}

func TestExchangeCodeIsSingleUse(t *testing.T) {
	m := newMockService(t)
	m.reply(tokenPath, http.StatusOK, `{"access_token":"abc123"}`)
	store := NewMemoryStore()
	c := newExchangeClient(m, store)
	c.Session().SetAuthorizationCode("the-code")

	require.NoError(t, c.ExchangeCode(context.Background()))
	err := c.ExchangeCode(context.Background())

	assert.ErrorIs(t, err, ErrNoAuthorizationCode)
	assert.Equal(t, 1, m.calls())
	assert.Equal(t, 1, store.Saves())
}

func TestExchangeCodeRejected(t *testing.T) {
	m := newMockService(t)
	m.reply(tokenPath, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	store := NewMemoryStore()
	c := newExchangeClient(m, store)
	c.Session().SetAuthorizationCode("stale")

	err := c.ExchangeCode(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExchange)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, StateUnauthenticated, c.Session().State())
	assert.Empty(t, c.Session().AccessToken())
	assert.False(t, c.Session().PendingCode())
	assert.Zero(t, store.Saves())
}

func TestExchangeCodeWithoutAccessToken(t *testing.T) {
	m := newMockService(t)
	m.reply(tokenPath, http.StatusOK, `{"token_type":"bearer"}`)
	store := NewMemoryStore()
	c := newExchangeClient(m, store)
	c.Session().SetAuthorizationCode("the-code")

	err := c.ExchangeCode(context.Background())

	assert.ErrorIs(t, err, ErrTokenExchange)
	assert.False(t, c.Session().Ready())
	assert.Zero(t, store.Saves())
}

func TestExchangeCodeTransportFailure(t *testing.T) {
	m := newMockService(t)
	c := newExchangeClient(m, NewMemoryStore())
	c.Session().SetAuthorizationCode("the-code")
	m.srv.Close()

	err := c.ExchangeCode(context.Background())

	assert.ErrorIs(t, err, ErrTokenExchange)
	_, isAPI := AsAPIError(err)
	assert.False(t, isAPI)
	assert.Equal(t, StateUnauthenticated, c.Session().State())
}

func TestExchangeCodeStoreFailureKeepsToken(t *testing.T) {
	m := newMockService(t)
	m.reply(tokenPath, http.StatusOK, `{"access_token":"abc123"}`)
	boom := errors.New("store offline")
	c := newExchangeClient(m, failingStore{err: boom})
	c.Session().SetAuthorizationCode("the-code")

	err := c.ExchangeCode(context.Background())

	assert.ErrorIs(t, err, ErrPersistToken)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "abc123", c.Session().AccessToken())
	assert.True(t, c.Session().Ready())
}

func TestExchangeWithoutCode(t *testing.T) {
	m := newMockService(t)
	c := newExchangeClient(m, nil)

	assert.ErrorIs(t, c.ExchangeCode(context.Background()), ErrNoAuthorizationCode)
	assert.Zero(t, m.calls())
}

func TestAuthenticateRestoresWithoutExchange(t *testing.T) {
	m := newMockService(t)
	c := newExchangeClient(m, NewMemoryStoreWithToken("saved"))

	ready, err := c.Authenticate(context.Background())

	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, "saved", c.Session().AccessToken())
	assert.Zero(t, m.calls())
}

func TestAuthenticatePrefersPendingCode(t *testing.T) {
	m := newMockService(t)
	m.reply(tokenPath, http.StatusOK, `{"access_token":"fresh"}`)
	store := NewMemoryStoreWithToken("old")
	c := newExchangeClient(m, store)
	c.Session().SetAuthorizationCode("the-code")

	ready, err := c.Authenticate(context.Background())

	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, "fresh", c.Session().AccessToken())
	assert.Equal(t, 1, store.Saves())
}

func TestNewClientPerformsNoIO(t *testing.T) {
	m := newMockService(t)
	store := NewMemoryStoreWithToken("saved")
	sess := NewSession(testConfig(), store)
	sess.SetAuthorizationCode("the-code")

	NewClient(sess, WithBaseURL(m.srv.URL), WithTokenURL(m.srv.URL+tokenPath))

	assert.Zero(t, m.calls())
	assert.Zero(t, store.Saves())
	assert.Equal(t, StateExchangingCode, sess.State())
}
