package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for the migration domains
type ErrorType string

const (
	ErrorTypePrecondition   ErrorType = "PRECONDITION_ERROR"
	ErrorTypeRemoteRejected ErrorType = "REMOTE_REJECTED"
	ErrorTypeRemoteNotFound ErrorType = "REMOTE_NOT_FOUND"
	ErrorTypeTransport      ErrorType = "TRANSPORT_ERROR"
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrRejected     = errors.New("rejected by remote store")
	ErrMissingScope = errors.New("missing access scope")
	ErrInvalidInput = errors.New("invalid input")
)

// AppError represents a custom application error with context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	StatusCode int                    `json:"status_code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Component  string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, statusCode int) *AppError {
	return &AppError{
		Type:       errorType,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewPreconditionError creates a fatal precondition error. Runs abort on it.
func NewPreconditionError(message string) *AppError {
	return NewAppError(ErrorTypePrecondition, message, 0).WithCause(ErrMissingScope)
}

// NewRemoteRejectedError creates an error for a write the remote store refused.
func NewRemoteRejectedError(message string, statusCode int) *AppError {
	return NewAppError(ErrorTypeRemoteRejected, message, statusCode).WithCause(ErrRejected)
}

// NewRemoteNotFoundError creates an error for an id the remote store no longer has.
func NewRemoteNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeRemoteNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).WithCause(ErrNotFound)
}

// NewTransportError creates an error for a failed round trip
func NewTransportError(message string) *AppError {
	return NewAppError(ErrorTypeTransport, message, 0)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, 0).WithCause(ErrInvalidInput)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, 0)
}

// WrapError wraps an error with context
func WrapError(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

func typeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

// IsPrecondition checks if an error is a fatal precondition failure
func IsPrecondition(err error) bool {
	if t, ok := typeOf(err); ok {
		return t == ErrorTypePrecondition
	}
	return errors.Is(err, ErrMissingScope)
}

// IsRemoteRejected checks if the remote store refused a write
func IsRemoteRejected(err error) bool {
	if t, ok := typeOf(err); ok {
		return t == ErrorTypeRemoteRejected
	}
	return errors.Is(err, ErrRejected)
}

// IsRemoteNotFound checks if the remote store reported a missing id
func IsRemoteNotFound(err error) bool {
	if t, ok := typeOf(err); ok {
		return t == ErrorTypeRemoteNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsTransport checks if an error is a transport failure
func IsTransport(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeTransport
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	if t, ok := typeOf(err); ok {
		return t == ErrorTypeValidation
	}
	return errors.Is(err, ErrInvalidInput)
}
