package http

import (
	"context"
	"net/http"
)

// Doer executes a single HTTP request. Implementations must honour ctx.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

var _ Doer = (*Client)(nil)
