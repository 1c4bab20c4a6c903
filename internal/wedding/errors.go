package wedding

import (
	"errors"
	"fmt"
	"net/http"

	"bind8/internal/expiration"
	"bind8/internal/models"
)

// ServiceError represents errors from the wedding service with HTTP context
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors for common service errors

func NewWeddingNotFoundError(id string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeNotFound,
		Message:    fmt.Sprintf("wedding '%s' not found", id),
		StatusCode: http.StatusNotFound,
	}
}

// NewValidationError carries per-field details when err is a
// models.ValidationErrors or an expiration.ValidationError.
func NewValidationError(message string, err error) *ServiceError {
	se := &ServiceError{
		Code:       models.ErrorCodeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        err,
	}

	var fields models.ValidationErrors
	var single *expiration.ValidationError
	switch {
	case errors.As(err, &fields):
		se.Details = map[string]string(fields)
	case errors.As(err, &single):
		se.Details = map[string]string{single.Field: single.Error()}
	}
	return se
}

func NewAuthenticationError(message string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewConflictError(message string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}
