// Package apierror holds the error body returned by the HTTP API.
package apierror

import (
	"encoding/json"
	"strings"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeQueryRejected    ErrorCode = "query_rejected"

	// Server errors (5xx)
	ErrCodeInternalError      ErrorCode = "internal_error"
	ErrCodeDatabaseError      ErrorCode = "database_error"
	ErrCodeServiceUnavailable ErrorCode = "service_unavailable"
)

// APIError is the JSON body of every error response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

func newError(code ErrorCode, message string, details []string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewBadRequestError(message string, details ...string) *APIError {
	return newError(ErrCodeBadRequest, message, details)
}

func NewValidationError(details ...string) *APIError {
	return newError(ErrCodeValidationFailed, "Validation failed", details)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return newError(ErrCodeUnauthorized, message, details)
}

func NewQueryRejectedError(message string, details ...string) *APIError {
	return newError(ErrCodeQueryRejected, message, details)
}

func NewInternalError(message string, details ...string) *APIError {
	return newError(ErrCodeInternalError, message, details)
}

func NewDatabaseError(message string, details ...string) *APIError {
	return newError(ErrCodeDatabaseError, message, details)
}

func NewServiceUnavailableError(message string, details ...string) *APIError {
	return newError(ErrCodeServiceUnavailable, message, details)
}
