package buffer

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/milan604/buffer-go/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFor(t *testing.T) {
	tests := map[string]string{
		ReasonInvalidEndpoint: "The endpoint you supplied does not appear to be valid.",
		"400":                 "Required parameter missing.",
		"403":                 "Permission denied.",
		"404":                 "Endpoint not found.",
		"405":                 "Method not allowed.",
		"406":                 "Unsupported response format.",
		"500":                 UnknownErrorMessage,
		"1020":                "Update could not be found.",
		"1031":                "Media filesize out of acceptable range.",
		"418":                 UnknownErrorMessage,
		"":                    UnknownErrorMessage,
	}
	for key, want := range tests {
		assert.Equal(t, want, MessageFor(key), "key %q", key)
	}
}

func TestResponseMessagesKeepLastDocumentedEntry(t *testing.T) {
	assert.Equal(t, "Media filesize out of acceptable range.", ResponseMessages["400"])
	assert.Equal(t, "Update soft limit for profile reached.", ResponseMessages["403"])
	assert.Equal(t, "Update could not be found.", ResponseMessages["404"])
	assert.Len(t, ResponseMessages, 6)
}

func TestAPIErrorKeyAndMessage(t *testing.T) {
	e := newReasonError(ReasonInvalidEndpoint)
	assert.Equal(t, ReasonInvalidEndpoint, e.Key())
	assert.Equal(t, "buffer: invalid-endpoint: The endpoint you supplied does not appear to be valid.", e.Error())
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus())

	e = newStatusError(http.StatusNotFound)
	assert.Equal(t, "404", e.Key())
	assert.Equal(t, "Endpoint not found.", e.Message)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus())

	e.ServiceCode = 1010
	e.ServiceMessage = "Profile could not be found."
	assert.Contains(t, e.Error(), "service 1010")
}

func TestErrorHelpersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("calling buffer: %w", newStatusError(http.StatusForbidden))

	ae, ok := AsAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, ae.Code)
	assert.Equal(t, http.StatusForbidden, StatusCode(wrapped))
	assert.False(t, IsInvalidEndpoint(wrapped))

	assert.True(t, IsInvalidEndpoint(fmt.Errorf("x: %w", newReasonError(ReasonInvalidEndpoint))))
	assert.Zero(t, StatusCode(errors.New("plain")))
	_, ok = AsAPIError(errors.New("plain"))
	assert.False(t, ok)
}

func TestAPIErrorToAppError(t *testing.T) {
	e := newStatusError(http.StatusMethodNotAllowed)
	ae := e.AppError()

	assert.Equal(t, "405", ae.Code)
	assert.Equal(t, "Method not allowed.", ae.Message)
	assert.Equal(t, http.StatusMethodNotAllowed, ae.HTTPStatus)
	assert.ErrorIs(t, ae, e)

	conv := apperr.FromError(fmt.Errorf("wrapped: %w", newReasonError(ReasonInvalidEndpoint)))
	assert.Equal(t, ReasonInvalidEndpoint, conv.Code)
	assert.Equal(t, http.StatusNotFound, conv.HTTPStatus)
}
