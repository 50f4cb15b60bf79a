// Package errors provides the error taxonomy shared by the pricing engine.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeValidation indicates a malformed request (bad input shape)
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeDataIntegrity indicates inconsistent catalog or rule configuration
	TypeDataIntegrity Type = "DATA_INTEGRITY_ERROR"

	// TypeEvaluation indicates a rule expression failed while being evaluated
	TypeEvaluation Type = "EVALUATION_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeCanceled indicates the caller canceled or timed out the calculation
	TypeCanceled Type = "CANCELED"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// TypeOf returns the category of the outermost *Error in the chain,
// or TypeInternal when the chain carries none.
func TypeOf(err error) Type {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return TypeInternal
}

// IsType checks if any error in the chain is of a specific type
func IsType(err error, t Type) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Cause
	}
	return false
}

// ContextOf returns the merged context of every *Error in the chain.
// Outer values win over inner ones.
func ContextOf(err error) map[string]interface{} {
	merged := make(map[string]interface{})
	var chain []*Error
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			break
		}
		chain = append(chain, e)
		err = e.Cause
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].Context {
			merged[k] = v
		}
	}
	return merged
}

// Validation creates a validation error pinned to a request field
func Validation(field, message string) *Error {
	return New(TypeValidation, message).WithContext("field", field)
}

// DataIntegrity creates a data-integrity error
func DataIntegrity(message string, cause error) *Error {
	return Wrap(TypeDataIntegrity, message, cause)
}

// Evaluation creates an evaluation error
func Evaluation(message string, cause error) *Error {
	return Wrap(TypeEvaluation, message, cause)
}

// Config creates a configuration error
func Config(message string) *Error {
	return New(TypeConfig, message)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Canceled wraps a context cancellation
func Canceled(cause error) *Error {
	return Wrap(TypeCanceled, "calculation canceled", cause)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
