package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstreamErr struct{ status int }

func (e upstreamErr) Error() string { return fmt.Sprintf("upstream %d", e.status) }

func (e upstreamErr) AppError() *AppError {
	return New(ErrorCodeUpstream).WithMessage(e.Error())
}

func TestNew(t *testing.T) {
	a := New(ErrorCodeRateLimited)
	assert.Equal(t, "rate_limited", a.Code)
	assert.Equal(t, "Rate limit exceeded", a.Message)
	assert.Equal(t, http.StatusTooManyRequests, a.HTTPStatus)

	internal := New(nil)
	assert.Equal(t, ErrorCodeInternal.Code(), internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	orig := New(ErrorCodeForbidden)
	assert.Same(t, orig, FromError(fmt.Errorf("handler: %w", orig)))

	conv := FromError(fmt.Errorf("call: %w", upstreamErr{status: 503}))
	assert.Equal(t, ErrorCodeUpstream.Code(), conv.Code)
	assert.Equal(t, "upstream 503", conv.Message)
	assert.Equal(t, http.StatusBadGateway, conv.HTTPStatus)

	cause := errors.New("disk full")
	other := FromError(cause)
	assert.Equal(t, ErrorCodeInternal.Code(), other.Code)
	assert.Equal(t, ErrorCodeInternal.Message(), other.Message)
	assert.ErrorIs(t, other, cause)
	assert.Equal(t, "disk full", other.Error())
}

func TestFluentHelpers(t *testing.T) {
	var nilErr *AppError
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.False(t, nilErr.HasErrors())

	a := nilErr.AddSuggestion("code", "is required")
	require.NotNil(t, a)
	assert.Equal(t, []Suggestion{{Field: "code", Message: "is required"}}, a.Suggestions)
	assert.True(t, a.HasErrors())

	m := New(ErrorCodeNotFound).WithMessage("no such endpoint")
	assert.Equal(t, "no such endpoint", m.Error())

	cause := errors.New("boom")
	w := New(ErrorCodeInternal).Wrap(cause)
	assert.Equal(t, cause, errors.Unwrap(w))
}

func TestErrorCodeAccessors(t *testing.T) {
	ec := NewErrorCode("teapot", "I'm a teapot", 5, http.StatusTeapot)
	assert.Equal(t, "teapot", ec.Code())
	assert.Equal(t, "I'm a teapot", ec.Message())
	assert.Equal(t, 5, ec.Value())
	assert.Equal(t, http.StatusTeapot, ec.HTTPStatus())
}
