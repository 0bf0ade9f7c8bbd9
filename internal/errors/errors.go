package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., a second active job for a user).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInvalidTransition indicates a session event that is not legal in the current state.
	ErrCodeInvalidTransition ErrorCode = "invalid_transition"
	// ErrCodeCapacityExceeded indicates the photo staging limit was reached.
	ErrCodeCapacityExceeded ErrorCode = "capacity_exceeded"
	// ErrCodeNoPhotosStaged indicates a prompt arrived before any reference photo.
	ErrCodeNoPhotosStaged ErrorCode = "no_photos_staged"
	// ErrCodeProviderUnavailable indicates a transient provider failure; callers may retry.
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	// ErrCodeProviderRejected indicates the provider permanently refused the request.
	ErrCodeProviderRejected ErrorCode = "provider_rejected"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// InvalidTransitionf creates an InvalidTransition error describing the rejected event.
func InvalidTransitionf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf(format, args...),
	}
}

// CapacityExceeded creates a CapacityExceeded error.
func CapacityExceeded(message string) *AppError {
	return &AppError{
		Code:    ErrCodeCapacityExceeded,
		Message: message,
	}
}

// NoPhotosStaged creates a NoPhotosStaged error.
func NoPhotosStaged(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNoPhotosStaged,
		Message: message,
	}
}

// ProviderUnavailable creates a transient provider error; callers should retry with backoff.
func ProviderUnavailable(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProviderUnavailable,
		Message: message,
		Cause:   cause,
	}
}

// ProviderRejected creates a permanent provider error carrying the provider's reason.
func ProviderRejected(reason string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProviderRejected,
		Message: reason,
		Cause:   cause,
	}
}

// Timeout creates a Timeout error.
func Timeout(message string) *AppError {
	return &AppError{
		Code:    ErrCodeTimeout,
		Message: message,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInvalidTransition checks if an error is an InvalidTransition error.
func IsInvalidTransition(err error) bool {
	return isCode(err, ErrCodeInvalidTransition)
}

// IsCapacityExceeded checks if an error is a CapacityExceeded error.
func IsCapacityExceeded(err error) bool {
	return isCode(err, ErrCodeCapacityExceeded)
}

// IsNoPhotosStaged checks if an error is a NoPhotosStaged error.
func IsNoPhotosStaged(err error) bool {
	return isCode(err, ErrCodeNoPhotosStaged)
}

// IsProviderUnavailable checks if an error is a transient provider error.
func IsProviderUnavailable(err error) bool {
	return isCode(err, ErrCodeProviderUnavailable)
}

// IsProviderRejected checks if an error is a permanent provider error.
func IsProviderRejected(err error) bool {
	return isCode(err, ErrCodeProviderRejected)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// IsUserFacing reports whether the error should be rendered back to the chat
// user as guidance rather than logged as an operational failure.
func IsUserFacing(err error) bool {
	switch GetCode(err) {
	case ErrCodeValidation, ErrCodeInvalidTransition, ErrCodeCapacityExceeded, ErrCodeNoPhotosStaged:
		return true
	default:
		return false
	}
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
