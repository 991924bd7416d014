package buffer

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/milan604/buffer-go/pkg/apperr"
)

// ReasonInvalidEndpoint is the symbolic key used when a path matches no registered endpoint.
const ReasonInvalidEndpoint = "invalid-endpoint"

// UnknownErrorMessage is returned for error keys with no table entry.
const UnknownErrorMessage = "An unknown error occurred."

// ErrorMessages maps symbolic reasons and Buffer service error codes to messages.
// HTTP failures are looked up here first, so 400/403/404/405 resolve to these entries.
var ErrorMessages = map[string]string{
	ReasonInvalidEndpoint: "The endpoint you supplied does not appear to be valid.",
	"400":                 "Required parameter missing.",
	"403":                 "Permission denied.",
	"404":                 "Endpoint not found.",
	"405":                 "Method not allowed.",
	"1000":                UnknownErrorMessage,
	"1001":                "Access token required.",
	"1002":                "Not within application scope.",
	"1003":                "Parameter not recognized.",
	"1004":                "Required parameter missing.",
	"1005":                "Unsupported response format.",
	"1010":                "Profile could not be found.",
	"1011":                "No authorization to access profile.",
	"1012":                "Profile did not save successfully.",
	"1013":                "Profile schedule limit reached.",
	"1014":                "Profile limit for user has been reached.",
	"1020":                "Update could not be found.",
	"1021":                "No authorization to access update.",
	"1022":                "Update did not save successfully.",
	"1023":                "Update limit for profile has been reached.",
	"1024":                "Update limit for team profile has been reached.",
	"1028":                "Update soft limit for profile reached.",
	"1030":                "Media filetype not supported.",
	"1031":                "Media filesize out of acceptable range.",
}

// ResponseMessages maps HTTP statuses to messages. Several service errors share a
// status, so each status keeps the last message the service documents for it.
var ResponseMessages = map[string]string{
	"400": "Media filesize out of acceptable range.",
	"403": "Update soft limit for profile reached.",
	"404": "Update could not be found.",
	"405": "Method not allowed.",
	"406": "Unsupported response format.",
	"500": UnknownErrorMessage,
}

// MessageFor returns the message for an error key, falling back to UnknownErrorMessage.
func MessageFor(key string) string {
	if msg, ok := ErrorMessages[key]; ok {
		return msg
	}
	if msg, ok := ResponseMessages[key]; ok {
		return msg
	}
	return UnknownErrorMessage
}

// APIError is a failed Buffer call. It is keyed either by a symbolic Reason
// (invalid-endpoint) or by the numeric HTTP status in Code.
type APIError struct {
	Reason  string `json:"reason,omitempty"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"error"`

	// ServiceCode and ServiceMessage carry the error the service embedded in the
	// response body, when there was one. They do not change Key.
	ServiceCode    int    `json:"service_code,omitempty"`
	ServiceMessage string `json:"service_message,omitempty"`

	// Endpoint is the pattern the call resolved to, empty for invalid-endpoint.
	Endpoint string `json:"endpoint,omitempty"`
}

func newReasonError(reason string) *APIError {
	return &APIError{Reason: reason, Message: MessageFor(reason)}
}

func newStatusError(status int) *APIError {
	return &APIError{Code: status, Message: MessageFor(strconv.Itoa(status))}
}

// Key returns the lookup key of the error: the reason if set, else the status code.
func (e *APIError) Key() string {
	if e.Reason != "" {
		return e.Reason
	}
	return strconv.Itoa(e.Code)
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ServiceMessage != "" {
		return fmt.Sprintf("buffer: %s: %s (service %d: %s)", e.Key(), e.Message, e.ServiceCode, e.ServiceMessage)
	}
	return fmt.Sprintf("buffer: %s: %s", e.Key(), e.Message)
}

// HTTPStatus is the status a front end should answer with for this error.
func (e *APIError) HTTPStatus() int {
	switch {
	case e.Reason == ReasonInvalidEndpoint:
		return http.StatusNotFound
	case e.Code >= 400:
		return e.Code
	default:
		return http.StatusBadGateway
	}
}

// AppError converts the error to the canonical JSON error shape.
func (e *APIError) AppError() *apperr.AppError {
	ec := apperr.NewErrorCode(e.Key(), e.Message, e.Code, e.HTTPStatus())
	return apperr.New(ec).Wrap(e)
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsInvalidEndpoint reports whether err is an invalid-endpoint APIError.
func IsInvalidEndpoint(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Reason == ReasonInvalidEndpoint
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if ae, ok := AsAPIError(err); ok {
		return ae.Code
	}
	return 0
}
