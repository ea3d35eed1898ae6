package utils

import (
	"fmt"
	"net/http"
)

// ServiceError carries an error through the service layer with enough
// context for the controller boundary to map it onto the HTTP taxonomy.
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"`
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e ServiceError) Unwrap() error {
	return e.Cause
}

// GetServiceError extracts a ServiceError from an error.
func GetServiceError(err error) (ServiceError, bool) {
	if serviceErr, ok := err.(ServiceError); ok {
		return serviceErr, true
	}
	return ServiceError{}, false
}

func NewValidationError(message string) error {
	return ServiceError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError is used both for missing resources and for access
// denials on resources the caller may not enumerate.
func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewTransientError(message string, cause error) error {
	return ServiceError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewFatalError flags an invariant violation, e.g. a hash-chain
// mismatch discovered during verification.
func NewFatalError(message string) error {
	return ServiceError{
		Code:       "INVARIANT_VIOLATION",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewTouristNotFoundError() error   { return NewNotFoundError("Tourist") }
func NewAlertNotFoundError() error     { return NewNotFoundError("Alert") }
func NewZoneNotFoundError() error      { return NewNotFoundError("Zone") }
func NewTripNotFoundError() error      { return NewNotFoundError("Trip") }
func NewBroadcastNotFoundError() error { return NewNotFoundError("Broadcast") }
func NewEFIRNotFoundError() error      { return NewNotFoundError("E-FIR") }

func NewInvalidCredentialsError() error {
	return NewUnauthorizedError("Invalid credentials")
}
