// Package errors carries API-facing errors out of the logic layer.
// Each error pairs a call-site trace with an i18n message id and the
// HTTP status the handler should answer with.
package errors

import (
	"fmt"
	"net/http"
)

// CustomizedError is the error type the response writer understands.
// The message field holds an i18n id, not prose; it is localized just
// before it leaves the process.
type CustomizedError struct {
	cause   error
	message string
	trace   string
	code    int
}

// New builds an error for one call site. trace names the operator
// path ("Logic.Method.Step"), message is the i18n id shown to the
// client, err is the underlying cause and may be nil.
func New(trace, message string, err error) *CustomizedError {
	return &CustomizedError{
		cause:   err,
		message: message,
		trace:   trace,
		code:    http.StatusInternalServerError,
	}
}

// Code overrides the HTTP status. Errors default to 500.
func (e *CustomizedError) Code(c int) *CustomizedError {
	e.code = c
	return e
}

func (e *CustomizedError) GetCode() int {
	return e.code
}

// Message returns the i18n id, or the cause's text when no id was
// set.
func (e *CustomizedError) Message() string {
	if e.message == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

func (e *CustomizedError) Unwrap() error {
	return e.cause
}

func (e *CustomizedError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s (code %d)", e.trace, e.message, e.code)
	}
	return fmt.Sprintf("%s: %s (code %d): %v", e.trace, e.message, e.code, e.cause)
}
