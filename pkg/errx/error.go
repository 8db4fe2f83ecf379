package errx

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is the error type every keygate layer returns. Code identifies the
// registered failure, HTTPStatus is what the API answers with.
type Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Type       Type           `json:"type"`
	HTTPStatus int            `json:"http_status"`
	Details    map[string]any `json:"details,omitempty"`

	// Err is the cause, kept out of responses
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error and returns the error for chaining
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	return json.Marshal(&struct {
		*alias
		Error string `json:"error,omitempty"`
	}{
		alias: (*alias)(e),
		Error: e.Error(),
	})
}

// New creates an unregistered error whose code is the type name.
func New(message string, errType Type) *Error {
	return &Error{
		Code:       string(errType),
		Message:    message,
		Type:       errType,
		HTTPStatus: errType.Status(),
		Details:    make(map[string]any),
	}
}

// Validation is the error handlers return for a body they cannot parse.
func Validation(message string) *Error {
	return New(message, TypeValidation)
}

// Wrap adds context to err. A registered code and status found in err are kept
// so the response still names the wrapped failure.
func Wrap(err error, message string, errType Type) *Error {
	if err == nil {
		return nil
	}

	wrapped := New(message, errType)
	wrapped.Err = err

	var existing *Error
	if errors.As(err, &existing) {
		wrapped.Code = existing.Code
		wrapped.HTTPStatus = existing.HTTPStatus
		wrapped.Details = existing.Details
	}
	return wrapped
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
