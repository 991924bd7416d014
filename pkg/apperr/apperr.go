// Package apperr is the error shape the web front returns: a canonical code,
// a client message, optional field suggestions and an HTTP status.
package apperr

import "errors"

// Suggestion is a per-field suggestion to fix a validation error.
type Suggestion struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the canonical error shape used across handlers and serialized to clients.
type AppError struct {
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	HTTPStatus  int          `json:"-"`
	cause       error        `json:"-"`
}

// New creates a new AppError from an ErrorCode.
func New(ec *ErrorCode) *AppError {
	if ec == nil {
		ec = ErrorCodeInternal
	}
	return &AppError{
		Code:       ec.Code(),
		Message:    ec.Message(),
		HTTPStatus: ec.HTTPStatus(),
	}
}

// Converter is implemented by domain errors that know their AppError form.
type Converter interface {
	AppError() *AppError
}

// FromError converts err to an AppError. AppErrors and Converters anywhere in the
// chain are used as is; anything else becomes an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	var conv Converter
	if errors.As(err, &conv) {
		return conv.AppError()
	}
	a := New(ErrorCodeInternal)
	a.cause = err
	return a
}

// AddSuggestion appends a field suggestion (fluent)
func (a *AppError) AddSuggestion(field, message string) *AppError {
	if a == nil {
		a = New(ErrorCodeInternal)
	}
	a.Suggestions = append(a.Suggestions, Suggestion{
		Field:   field,
		Message: message,
	})
	return a
}

func (a *AppError) Error() string {
	if a == nil {
		return "<nil>"
	}
	if a.cause != nil {
		return a.cause.Error()
	}
	return a.Message
}

// WithMessage overrides the message and returns the same AppError for chaining.
func (a *AppError) WithMessage(msg string) *AppError {
	if a == nil {
		return New(ErrorCodeInternal).WithMessage(msg)
	}
	a.Message = msg
	return a
}

// Wrap sets the underlying cause and returns the same AppError.
func (a *AppError) Wrap(err error) *AppError {
	if a == nil {
		a = New(ErrorCodeInternal)
	}
	a.cause = err
	return a
}

// Unwrap returns the underlying cause, allowing errors.Unwrap/Is/As to work.
func (a *AppError) Unwrap() error { return a.cause }

// HasErrors returns true if the AppError has a code, message, or suggestions
func (a *AppError) HasErrors() bool {
	if a == nil {
		return false
	}
	return a.Code != "" || a.Message != "" || len(a.Suggestions) > 0
}
