// Package errors defines the structured error taxonomy shared by the
// reviewer services. Every failure surfaced to a buyer or recorded on a
// job terminates in one of these codes.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed or ambiguous submission,
	// rejected before any job state is created.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotFound indicates an unknown job id or missing resource.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodePayment indicates a payment collaborator failure. Jobs remain
	// in awaiting_payment and the operation is retryable.
	ErrCodePayment ErrorCode = "payment"
	// ErrCodeWorkerExecution indicates the remote worker execution failed
	// and no fallback ran (or fallback was disabled).
	ErrCodeWorkerExecution ErrorCode = "worker_execution"
	// ErrCodeTimeout indicates the overall execution deadline or the
	// worker-call timeout was exceeded.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeAnalyzer indicates a local analysis failure, such as a
	// malformed scan target or an external scanner failure.
	ErrCodeAnalyzer ErrorCode = "analyzer"
	// ErrCodeUnauthorized indicates the worker rejected the shared secret.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use
// with errors.Is and errors.As.
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

// Payment creates a new Payment error.
func Payment(message string) *AppError {
	return &AppError{
		Code:    ErrCodePayment,
		Message: message,
	}
}

// WorkerExecution creates a new WorkerExecution error.
func WorkerExecution(message string) *AppError {
	return &AppError{
		Code:    ErrCodeWorkerExecution,
		Message: message,
	}
}

// Timeout creates a new Timeout error.
func Timeout(message string) *AppError {
	return &AppError{
		Code:    ErrCodeTimeout,
		Message: message,
	}
}

// Analyzer creates a new Analyzer error.
func Analyzer(message string) *AppError {
	return &AppError{
		Code:    ErrCodeAnalyzer,
		Message: message,
	}
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
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

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsPayment checks if an error is a Payment error.
func IsPayment(err error) bool {
	return isCode(err, ErrCodePayment)
}

// IsWorkerExecution checks if an error is a WorkerExecution error.
func IsWorkerExecution(err error) bool {
	return isCode(err, ErrCodeWorkerExecution)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsAnalyzer checks if an error is an Analyzer error.
func IsAnalyzer(err error) bool {
	return isCode(err, ErrCodeAnalyzer)
}

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool {
	return isCode(err, ErrCodeUnauthorized)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
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
