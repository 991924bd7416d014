package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const grantTypeAuthorizationCode = "authorization_code"

// tokenResponse is the token endpoint answer.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// ExchangeCode trades the session's pending authorization code for an access
// token. The code is consumed whatever the outcome. On success the token is
// installed on the session and saved to its store exactly once; on failure the
// session is left unauthenticated and the error wraps ErrTokenExchange.
func (c *Client) ExchangeCode(ctx context.Context) error {
	code, ok := c.session.takeCode()
	if !ok {
		return ErrNoAuthorizationCode
	}

	ctx, span := c.tracer.Start(ctx, "buffer oauth2 token", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	token, err := c.requestToken(ctx, code)
	if err != nil {
		c.session.failExchange()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.WarnFCtx(ctx, "authorization code exchange failed: %v", err)
		return fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	c.session.completeExchange(token)
	c.log.InfoFCtx(ctx, "authorization code exchanged")

	if err := c.session.Persist(ctx); err != nil {
		c.log.ErrorFCtx(ctx, "%v", err)
		return err
	}
	return nil
}

func (c *Client) requestToken(ctx context.Context, code string) (string, error) {
	cfg := c.session.Config()
	form := url.Values{}
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("redirect_uri", cfg.CallbackURL)
	form.Set("code", code)
	form.Set("grant_type", grantTypeAuthorizationCode)

	req, err := c.newRequest(ctx, http.MethodPost, c.tokenURL, form)
	if err != nil {
		return "", err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := statusError(resp.StatusCode, body)
		apiErr.Endpoint = c.tokenURL
		return "", apiErr
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: token response: %w", ErrDecodeResponse, err)
	}
	token := strings.TrimSpace(tr.AccessToken)
	if token == "" {
		return "", errors.New("token response has no access_token")
	}
	return token, nil
}

// Authenticate completes authentication from whatever is available: a pending
// authorization code is exchanged, otherwise a stored token is restored.
// It reports whether the session is ready.
func (c *Client) Authenticate(ctx context.Context) (bool, error) {
	if c.session.PendingCode() {
		if err := c.ExchangeCode(ctx); err != nil {
			return c.session.Ready(), err
		}
		return true, nil
	}
	return c.session.Restore(ctx)
}
