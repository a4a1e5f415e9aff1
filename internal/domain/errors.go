// Package domain provides the request/response types and canonical error
// taxonomy shared by the gateway pipeline.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a gateway error.
type ErrorType string

const (
	// ErrorTypeValidation indicates malformed or out-of-bounds client input.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeAdmission indicates the client was rate limited or blacklisted.
	ErrorTypeAdmission ErrorType = "admission_denied"

	// ErrorTypeTimeout indicates the upstream call exceeded its deadline.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeUpstream indicates the upstream returned a failure.
	ErrorTypeUpstream ErrorType = "upstream"

	// ErrorTypeInternal indicates an unexpected server-side failure.
	ErrorTypeInternal ErrorType = "internal"
)

// GatewayError is the canonical error produced by pipeline components. The
// Message field is client-safe; anything sensitive stays in the wrapped cause,
// which is logged server-side and never serialized to the client.
type GatewayError struct {
	Type    ErrorType
	Message string
	cause   error
}

func (e *GatewayError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.cause }

// HTTPStatusCode maps the error category to the status the client receives.
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAdmission:
		return http.StatusTooManyRequests
	case ErrorTypeTimeout:
		return http.StatusRequestTimeout
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewGatewayError creates an error with a client-safe message.
func NewGatewayError(errType ErrorType, message string) *GatewayError {
	return &GatewayError{Type: errType, Message: message}
}

// WithCause attaches the underlying cause for server-side logging.
func (e *GatewayError) WithCause(err error) *GatewayError {
	e.cause = err
	return e
}

// Convenience constructors for the pipeline's error categories.

func ErrValidation(message string) *GatewayError {
	return NewGatewayError(ErrorTypeValidation, message)
}

func ErrAdmission(message string) *GatewayError {
	return NewGatewayError(ErrorTypeAdmission, message)
}

func ErrTimeout(message string) *GatewayError {
	return NewGatewayError(ErrorTypeTimeout, message)
}

func ErrUpstream(message string) *GatewayError {
	return NewGatewayError(ErrorTypeUpstream, message)
}

func ErrInternal(message string) *GatewayError {
	return NewGatewayError(ErrorTypeInternal, message)
}

// IsType reports whether err is a GatewayError of the given category.
func IsType(err error, t ErrorType) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Type == t
}
