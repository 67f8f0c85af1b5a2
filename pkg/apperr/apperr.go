// Package apperr defines the error type that services return to handlers.
// Each AppError carries the HTTP status it should be rendered with.
package apperr

import (
	"errors"
	"net/http"
)

// AppError is a client-facing error with a machine-readable code.
// Cause is only used for server-side logging.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// ==================== 4xx ====================

// ValidationError creates a 400 error with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// ConstraintViolation creates a 400 error for a broken uniqueness rule
// (duplicate review, duplicate title in a category, taken slug).
func ConstraintViolation(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "CONSTRAINT_VIOLATION",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// NotFound creates a 404 error for a named resource, e.g. NotFound("Title").
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// ==================== 5xx ====================

// Internal wraps an unexpected server-side error. The cause is never sent to clients.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// DeliveryFailed reports that an outbound message (email) could not be sent.
func DeliveryFailed(cause error) *AppError {
	return &AppError{
		Code:       "DELIVERY_FAILED",
		Message:    "Failed to deliver confirmation code",
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// As extracts the *AppError from err's chain, or returns nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// FromFields converts a field->message map (as produced by the request
// validator) into a ValidationError.
func FromFields(msg string, fields map[string]string) *AppError {
	details := make([]FieldError, 0, len(fields))
	for field, m := range fields {
		details = append(details, FieldError{Field: field, Message: m})
	}
	return ValidationError(msg, details...)
}
