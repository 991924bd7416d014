package buffer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	bufhttp "github.com/milan604/buffer-go/pkg/http"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/milan604/buffer-go/pkg/observability"
	"github.com/milan604/buffer-go/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL      = "https://api.bufferapp.com/1"
	DefaultTokenURL     = "https://api.bufferapp.com/1/oauth2/token.json"
	DefaultAuthorizeURL = "https://bufferapp.com/oauth2/authorize"

	responseSuffix = ".json"
	tracerName     = "github.com/milan604/buffer-go/pkg/buffer"
)

// ErrDecodeResponse wraps a success body that is not valid JSON.
var ErrDecodeResponse = errors.New("decode buffer response")

// Response is the decoded body of a successful call.
type Response struct {
	StatusCode int
	Endpoint   Endpoint
	// Data is the body decoded into generic JSON values (map[string]any, []any,
	// float64, string, bool). It is nil when the body was empty.
	Data any
	Raw  json.RawMessage
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	if len(r.Raw) == 0 {
		return fmt.Errorf("%w: empty body", ErrDecodeResponse)
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	return nil
}

// CallEvent describes one finished dispatch.
type CallEvent struct {
	Method     string
	Pattern    string
	Path       string
	StatusCode int
	Duration   time.Duration
	At         time.Time
	Err        error
}

// CallObserver is notified after every call, including calls rejected before
// reaching the network.
type CallObserver interface {
	ObserveCall(ctx context.Context, ev CallEvent)
}

// CallObserverFunc adapts a function to CallObserver.
type CallObserverFunc func(ctx context.Context, ev CallEvent)

func (f CallObserverFunc) ObserveCall(ctx context.Context, ev CallEvent) { f(ctx, ev) }

// Client dispatches calls against the Buffer API on behalf of a Session.
type Client struct {
	session   *Session
	registry  *Registry
	doer      bufhttp.Doer
	baseURL   string
	tokenURL  string
	userAgent string
	log       logger.LogManager
	tracer    trace.Tracer
	metrics   observability.MetricsIface
	observers []CallObserver
}

// NewClient creates a client bound to session. It performs no I/O.
func NewClient(session *Session, opts ...ClientOption) *Client {
	c := &Client{
		session:   session,
		registry:  DefaultRegistry(),
		baseURL:   DefaultBaseURL,
		tokenURL:  DefaultTokenURL,
		userAgent: version.UserAgent(),
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = NewSession(OAuthConfig{}, nil)
	}
	if c.doer == nil {
		c.doer = bufhttp.NewClient(bufhttp.WithLogger(c.log))
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session { return c.session }

// Registry returns the endpoint table used for resolution.
func (c *Client) Registry() *Registry { return c.registry }

// Call resolves path against the registry and dispatches it with data.
// data may be nil, Params, map[string]any, map[string]string, url.Values or a
// struct with `url` tags. The access_token parameter is always set from the session.
func (c *Client) Call(ctx context.Context, path string, data any) (*Response, error) {
	start := time.Now()

	ep, ok := c.registry.Resolve(path)
	if !ok {
		err := newReasonError(ReasonInvalidEndpoint)
		c.log.WarnFCtx(ctx, "no endpoint matches %q", path)
		c.finish(ctx, CallEvent{Path: path, At: start, Err: err})
		return nil, err
	}

	vals, err := encodeParams(data)
	if err != nil {
		c.log.WarnFCtx(ctx, "%s %s: %v", ep.Method, path, err)
		c.finish(ctx, CallEvent{Method: ep.Method, Pattern: ep.Pattern, Path: path, At: start, Err: err})
		return nil, err
	}
	vals.Set(AccessTokenParam, c.session.AccessToken())

	ctx = logger.WithEndpoint(ctx, ep.Pattern)
	ctx, span := c.tracer.Start(ctx, "buffer "+ep.Method+" "+ep.Pattern,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			observability.AttrHTTPMethod.String(ep.Method),
			observability.AttrHTTPRoute.String(ep.Pattern),
		),
	)
	defer span.End()

	resp, status, err := c.send(ctx, ep, c.baseURL+path+responseSuffix, vals)

	ev := CallEvent{
		Method:     ep.Method,
		Pattern:    ep.Pattern,
		Path:       path,
		StatusCode: status,
		Duration:   time.Since(start),
		At:         start,
		Err:        err,
	}
	if status != 0 {
		span.SetAttributes(observability.AttrHTTPStatusCode.Int(status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.log.WarnFCtx(ctx, "%s %s: %v", ep.Method, path, err)
		} else {
			c.log.ErrorFCtx(ctx, "%s %s: %v", ep.Method, path, err)
		}
	} else {
		c.log.DebugFCtx(ctx, "%s %s -> %d in %s", ep.Method, path, status, ev.Duration)
	}
	c.finish(ctx, ev)

	return resp, err
}

// send performs one exchange and classifies the answer. The returned status is 0
// when no response was received.
func (c *Client) send(ctx context.Context, ep Endpoint, target string, vals url.Values) (*Response, int, error) {
	req, err := c.newRequest(ctx, ep.Method, target, vals)
	if err != nil {
		return nil, 0, err
	}

	httpResp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("buffer: %s %s: %w", ep.Method, ep.Pattern, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("buffer: read %s response: %w", ep.Pattern, err)
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		apiErr := statusError(httpResp.StatusCode, body)
		apiErr.Endpoint = ep.Pattern
		return nil, httpResp.StatusCode, apiErr
	}

	out := &Response{StatusCode: httpResp.StatusCode, Endpoint: ep}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, httpResp.StatusCode, nil
	}
	if err := json.Unmarshal(body, &out.Data); err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("%w: %s: %w", ErrDecodeResponse, ep.Pattern, err)
	}
	out.Raw = json.RawMessage(body)
	return out, httpResp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, vals url.Values) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	encoded := vals.Encode()
	switch method {
	case http.MethodGet:
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		req, err = http.NewRequestWithContext(ctx, method, target+sep+encoded, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("buffer: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// serviceErrorBody is the error document Buffer embeds in failed responses.
type serviceErrorBody struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusError(status int, body []byte) *APIError {
	apiErr := newStatusError(status)
	var se serviceErrorBody
	if err := json.Unmarshal(body, &se); err == nil {
		apiErr.ServiceCode = se.Code
		apiErr.ServiceMessage = se.Error
		if apiErr.ServiceMessage == "" {
			apiErr.ServiceMessage = se.Message
		}
	}
	return apiErr
}

func (c *Client) finish(ctx context.Context, ev CallEvent) {
	if c.metrics != nil {
		outcome := "ok"
		switch {
		case IsInvalidEndpoint(ev.Err):
			outcome = ReasonInvalidEndpoint
		case errors.Is(ev.Err, ErrUnsupportedParams):
			outcome = "invalid_params"
		case StatusCode(ev.Err) != 0:
			outcome = "api_error"
		case ev.Err != nil:
			outcome = "transport_error"
		}
		attrs := []attribute.KeyValue{
			observability.AttrEndpoint.String(ev.Pattern),
			attribute.String("buffer.outcome", outcome),
		}
		c.metrics.IncrementCounter(ctx, "buffer.client.calls", attrs...)
		if ev.Pattern != "" {
			c.metrics.RecordHistogram(ctx, "buffer.client.duration_ms", float64(ev.Duration.Milliseconds()), attrs...)
		}
	}
	for _, o := range c.observers {
		o.ObserveCall(ctx, ev)
	}
}
