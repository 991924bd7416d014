package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the circuit breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Client is an HTTP client with request/response hooks, optional client-side
// rate limiting and an optional circuit breaker. It never retries.
type Client struct {
	httpClient    *http.Client
	logger        logger.LogManager
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker[*http.Response]
	tracing       bool
	userAgent     string
	requestHooks  []RequestHook
	responseHooks []ResponseHook
}

// RequestHook is a function that can modify a request before it's sent.
type RequestHook func(*http.Request) error

// ResponseHook is a function that can process a response after it's received.
type ResponseHook func(*http.Response) error

// ClientOption configures the HTTP client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout sets the overall request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets a logger for the client.
func WithLogger(l logger.LogManager) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// Requests wait for a token and fail only when ctx ends first.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker trips after consecutive transport errors or 5xx answers.
// Zero-valued settings fields take gobreaker defaults.
func WithCircuitBreaker(st gobreaker.Settings) ClientOption {
	return func(c *Client) {
		if st.Name == "" {
			st.Name = "buffer-http"
		}
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](st)
	}
}

// WithTracing wraps the transport with OpenTelemetry instrumentation.
func WithTracing() ClientOption {
	return func(c *Client) {
		c.tracing = true
	}
}

// WithUserAgent sets the User-Agent header on requests that have none.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRequestHook adds a hook that runs before each request.
func WithRequestHook(hook RequestHook) ClientOption {
	return func(c *Client) {
		c.requestHooks = append(c.requestHooks, hook)
	}
}

// WithResponseHook adds a hook that runs after each response.
func WithResponseHook(hook ResponseHook) ClientOption {
	return func(c *Client) {
		c.responseHooks = append(c.responseHooks, hook)
	}
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tracing {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *c.httpClient
		wrapped.Transport = otelhttp.NewTransport(base)
		c.httpClient = &wrapped
	}

	return c
}

// Do executes a single HTTP request.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	if err := c.prepareRequest(req); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := c.execute(req)
	if err != nil {
		if c.logger != nil {
			c.logger.WarnFCtx(ctx, "request %s %s failed: %v", req.Method, req.URL.Path, err)
		}
		return nil, err
	}

	if err := c.applyResponseHooks(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// prepareRequest applies request hooks and default headers.
func (c *Client) prepareRequest(req *http.Request) error {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.applyRequestHooks(req)
}

// applyRequestHooks applies all request hooks.
func (c *Client) applyRequestHooks(req *http.Request) error {
	for _, hook := range c.requestHooks {
		if err := hook(req); err != nil {
			return fmt.Errorf("request hook failed: %w", err)
		}
	}
	return nil
}

// serverFailure lets a 5xx response count against the breaker while still
// reaching the caller.
type serverFailure struct {
	resp *http.Response
}

func (e *serverFailure) Error() string {
	return fmt.Sprintf("server answered %d", e.resp.StatusCode)
}

// execute sends the request, through the circuit breaker when configured.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverFailure{resp: resp}
		}
		return resp, nil
	})

	var sf *serverFailure
	switch {
	case errors.As(err, &sf):
		return sf.resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return resp, err
}

// applyResponseHooks applies all response hooks.
func (c *Client) applyResponseHooks(resp *http.Response) error {
	for _, hook := range c.responseHooks {
		if err := hook(resp); err != nil {
			return fmt.Errorf("response hook failed: %w", err)
		}
	}
	return nil
}

// BreakerState reports the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}
