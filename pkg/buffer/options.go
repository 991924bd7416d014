package buffer

import (
	"strings"

	bufhttp "github.com/milan604/buffer-go/pkg/http"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/milan604/buffer-go/pkg/observability"
	"go.opentelemetry.io/otel/trace"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides DefaultBaseURL. A trailing slash is dropped.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTokenURL overrides DefaultTokenURL.
func WithTokenURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.tokenURL = u
		}
	}
}

// WithDoer sets the transport used for every request.
func WithDoer(d bufhttp.Doer) ClientOption {
	return func(c *Client) {
		c.doer = d
	}
}

// WithRegistry replaces the default endpoint table.
func WithRegistry(r *Registry) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

func WithLogger(l logger.LogManager) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithMetrics records a call counter and a latency histogram per endpoint.
func WithMetrics(m observability.MetricsIface) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithCallObserver adds an observer notified after each call.
func WithCallObserver(o CallObserver) ClientOption {
	return func(c *Client) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithUserAgent overrides the User-Agent header. An empty value disables it.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}
