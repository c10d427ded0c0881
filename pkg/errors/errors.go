package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return NewAppError("BAD_REQUEST", message, http.StatusBadRequest, err)
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return NewAppError("FORBIDDEN", message, http.StatusForbidden, err)
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return NewAppError("NOT_FOUND", message, http.StatusNotFound, err)
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return NewAppError("CONFLICT", message, http.StatusConflict, err)
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return NewAppError("INTERNAL_ERROR", message, http.StatusInternalServerError, err)
}

// ServiceUnavailable creates a 503 error
func ServiceUnavailable(message string, err error) *AppError {
	return NewAppError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, err)
}

// Domain-specific errors

var (
	ErrRideNotFound        = NotFound("Ride not found", nil)
	ErrContractNotFound    = NotFound("Contract not found", nil)
	ErrRideRequestNotFound = NotFound("Ride request not found or expired", nil)
	ErrCarNotFound         = NotFound("Car not found", nil)
	ErrDriverNotFound      = NotFound("Driver not found", nil)

	ErrInvalidRideTransition = &AppError{Code: "INVALID_RIDE_TRANSITION", Message: "Ride cannot change to the requested status", Status: http.StatusConflict}
	ErrSeatUnavailable       = &AppError{Code: "SEAT_UNAVAILABLE", Message: "One or more requested seats are already taken", Status: http.StatusConflict}
	ErrRideNotBookable       = &AppError{Code: "RIDE_NOT_BOOKABLE", Message: "Ride is no longer accepting bookings", Status: http.StatusConflict}
	ErrConcurrentUpdate      = &AppError{Code: "CONCURRENT_UPDATE", Message: "Ride was modified concurrently, reload and retry", Status: http.StatusConflict}
	ErrCarUnavailable        = &AppError{Code: "CAR_UNAVAILABLE", Message: "Car is currently on a trip", Status: http.StatusConflict}
	ErrDriverUnavailable     = &AppError{Code: "DRIVER_UNAVAILABLE", Message: "Driver is not available", Status: http.StatusConflict}

	ErrNotCarOwner  = Forbidden("Car belongs to another owner", nil)
	ErrNotRideOwner = Forbidden("Only the party that created the ride may manage it", nil)

	ErrMissingToken = Unauthorized("Missing bearer token", nil)
	ErrInvalidToken = Unauthorized("Invalid or expired token", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WithCause returns a copy of appErr carrying err as its cause
func WithCause(appErr *AppError, err error) *AppError {
	if appErr == nil {
		return nil
	}
	return &AppError{
		Code:    appErr.Code,
		Message: appErr.Message,
		Status:  appErr.Status,
		Err:     err,
	}
}
