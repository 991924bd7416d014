// Package cookiestore keeps the access token in a gorilla/sessions session, so a
// web front can remember the user between requests.
package cookiestore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/milan604/buffer-go/pkg/buffer"
)

const (
	SessionName = "oauth"
	TokenKey    = "buffer_access_token"
	// SignedInKey is set once this browser has completed the OAuth callback.
	SignedInKey = "signed_in"
)

// Store is bound to one request/response pair.
type Store struct {
	sessions sessions.Store
	name     string
	r        *http.Request
	w        http.ResponseWriter
}

// New returns a store reading from r and writing the session cookie to w.
func New(store sessions.Store, r *http.Request, w http.ResponseWriter) *Store {
	return &Store{sessions: store, name: SessionName, r: r, w: w}
}

// NewCookieStore creates a cookie-backed session store scoped to the whole site.
func NewCookieStore(secure bool, keyPairs ...[]byte) *sessions.CookieStore {
	cs := sessions.NewCookieStore(keyPairs...)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

func (s *Store) SaveToken(_ context.Context, token string) error {
	sess, err := s.sessions.Get(s.r, s.name)
	if err != nil && sess == nil {
		return fmt.Errorf("load %s session: %w", s.name, err)
	}
	sess.Values[TokenKey] = token
	sess.Values[SignedInKey] = token != ""
	if err := sess.Save(s.r, s.w); err != nil {
		return fmt.Errorf("save %s session: %w", s.name, err)
	}
	return nil
}

// LoadToken reads the token from the request cookie. An undecodable cookie is
// treated as no token.
func (s *Store) LoadToken(_ context.Context) (string, bool, error) {
	sess, err := s.sessions.Get(s.r, s.name)
	if err != nil || sess == nil {
		return "", false, nil
	}
	token, _ := sess.Values[TokenKey].(string)
	return token, token != "", nil
}

// SignedIn reports whether the session carries the sign-in marker.
func (s *Store) SignedIn() bool {
	sess, err := s.sessions.Get(s.r, s.name)
	if err != nil || sess == nil {
		return false
	}
	signed, _ := sess.Values[SignedInKey].(bool)
	return signed
}

// Clear removes the token and the sign-in marker from the session.
func (s *Store) Clear() error {
	sess, err := s.sessions.Get(s.r, s.name)
	if err != nil && sess == nil {
		return err
	}
	delete(sess.Values, TokenKey)
	delete(sess.Values, SignedInKey)
	return sess.Save(s.r, s.w)
}

var _ buffer.TokenStore = (*Store)(nil)
