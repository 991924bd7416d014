package buffer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

var (
	// ErrNoAuthorizationCode is returned by ExchangeCode when no code is pending.
	ErrNoAuthorizationCode = errors.New("no authorization code to exchange")
	// ErrTokenExchange wraps every failed code exchange.
	ErrTokenExchange = errors.New("token exchange failed")
	// ErrPersistToken wraps token store failures.
	ErrPersistToken = errors.New("persist access token")
)

// State is the authentication state of a Session.
type State int

const (
	// StateUnauthenticated means no access token is held.
	StateUnauthenticated State = iota
	// StateExchangingCode means a single-use authorization code is waiting to be exchanged.
	StateExchangingCode
	// StateAuthenticated means an access token is held, exchanged or restored.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateExchangingCode:
		return "exchanging_code"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// OAuthConfig identifies the application to the Buffer OAuth provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	// AuthorizeURL overrides DefaultAuthorizeURL.
	AuthorizeURL string
}

// Session holds the OAuth client identity and the access token.
// Construction performs no I/O; the token is set by Restore, by an explicit
// code exchange, or by SetAccessToken.
type Session struct {
	mu    sync.RWMutex
	cfg   OAuthConfig
	store TokenStore
	code  string
	token string
	state State
}

// NewSession creates an unauthenticated session. store may be nil.
func NewSession(cfg OAuthConfig, store TokenStore) *Session {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	return &Session{cfg: cfg, store: store}
}

// Config returns the OAuth configuration of the session.
func (s *Session) Config() OAuthConfig {
	return s.cfg
}

// Store returns the token store, possibly nil.
func (s *Session) Store() TokenStore {
	return s.store
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether the session holds an access token.
func (s *Session) Ready() bool {
	return s.State() == StateAuthenticated
}

// AccessToken returns the current token, empty when unauthenticated.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetAccessToken installs a token obtained elsewhere. An empty token
// returns the session to StateUnauthenticated.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.code = ""
	if token == "" {
		s.state = StateUnauthenticated
		return
	}
	s.state = StateAuthenticated
}

// SetAuthorizationCode records a single-use code returned by the provider
// after user consent. An empty code is ignored.
func (s *Session) SetAuthorizationCode(code string) {
	if code == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	s.state = StateExchangingCode
}

// PendingCode reports whether an authorization code is waiting to be exchanged.
func (s *Session) PendingCode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code != ""
}

// Restore loads a previously saved token from the store. It is skipped while an
// authorization code is pending, since the exchange decides the token.
// It reports whether the session is ready afterwards.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.store == nil || s.PendingCode() {
		return s.Ready(), nil
	}
	token, ok, err := s.store.LoadToken(ctx)
	if err != nil {
		return s.Ready(), fmt.Errorf("restore access token: %w", err)
	}
	if !ok || token == "" {
		return s.Ready(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code != "" {
		return false, nil
	}
	s.token = token
	s.state = StateAuthenticated
	return true, nil
}

// Persist saves the current token through the store. It is a no-op without a store.
func (s *Session) Persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveToken(ctx, s.AccessToken()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistToken, err)
	}
	return nil
}

// LoginURL returns the provider consent page for this client.
func (s *Session) LoginURL() string {
	q := url.Values{}
	q.Set("client_id", s.cfg.ClientID)
	q.Set("redirect_uri", s.cfg.CallbackURL)
	q.Set("response_type", "code")

	sep := "?"
	if strings.Contains(s.cfg.AuthorizeURL, "?") {
		sep = "&"
	}
	return s.cfg.AuthorizeURL + sep + q.Encode()
}

// takeCode removes and returns the pending code. The code is single use:
// it is gone whether or not the exchange that follows succeeds.
func (s *Session) takeCode() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.code
	s.code = ""
	return code, code != ""
}

func (s *Session) completeExchange(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.state = StateAuthenticated
}

func (s *Session) failExchange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.state = StateUnauthenticated
}

// CodeFromRequest returns the authorization code the provider appended to the
// callback request, or "" when there is none.
func CodeFromRequest(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("code"))
}
