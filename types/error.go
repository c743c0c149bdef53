package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the agent.
type ErrorCode string

// Session-fatal error codes
const (
	// ErrOperationFailed marks a required UI transition that did not complete
	// after the component exhausted its own retry budget.
	ErrOperationFailed ErrorCode = "OPERATION_FAILED"
	// ErrConfiguration marks invalid parameters or a malformed/missing asset.
	ErrConfiguration ErrorCode = "CONFIGURATION"
)

// Infrastructure error codes
const (
	ErrCaptureFailed     ErrorCode = "CAPTURE_FAILED"
	ErrInputFailed       ErrorCode = "INPUT_FAILED"
	ErrSessionsExhausted ErrorCode = "SESSIONS_EXHAUSTED"
	ErrStore             ErrorCode = "STORE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Component string    `json:"component,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewOperationFailed creates a session-fatal OperationFailed error.
func NewOperationFailed(format string, args ...any) *Error {
	return &Error{Code: ErrOperationFailed, Message: fmt.Sprintf(format, args...)}
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{Code: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithComponent records which component raised the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// AsError extracts a *Error from anywhere in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// IsFatal reports whether err ends the current session. OperationFailed and
// Configuration errors are fatal; everything else is left to the caller.
func IsFatal(err error) bool {
	return IsErrorCode(err, ErrOperationFailed) || IsErrorCode(err, ErrConfiguration)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
