package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeConfigParse      ErrorType = "CONFIG_PARSE"
	ErrorTypeValidation       ErrorType = "VALIDATION"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeInvalidReference ErrorType = "INVALID_REFERENCE"
	ErrorTypeInstantiation    ErrorType = "INSTANTIATION"
	ErrorTypeShutdown         ErrorType = "SHUTDOWN"
	ErrorTypeInternal         ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewConfigParse creates a manifest parse error
func NewConfigParse(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeConfigParse,
		Message: message,
		Err:     err,
	}
}

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInvalidReference creates an error for a reference with the wrong shape
func NewInvalidReference(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidReference,
		Message: message,
	}
}

// NewInstantiation creates an error for a failed component construction,
// wrapping the underlying cause
func NewInstantiation(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInstantiation,
		Message: message,
		Err:     err,
	}
}

// NewShutdown creates an error for a failed component cleanup hook
func NewShutdown(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeShutdown,
		Message: message,
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     err,
		}
	}

	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsConfigParse checks if an error is a manifest parse error
func IsConfigParse(err error) bool {
	return isType(err, ErrorTypeConfigParse)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsInvalidReference checks if an error is an invalid reference error
func IsInvalidReference(err error) bool {
	return isType(err, ErrorTypeInvalidReference)
}

// IsInstantiation checks if an error is a component construction error
func IsInstantiation(err error) bool {
	return isType(err, ErrorTypeInstantiation)
}

// IsShutdown checks if an error is a cleanup error
func IsShutdown(err error) bool {
	return isType(err, ErrorTypeShutdown)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}
