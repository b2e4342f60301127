package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the failure taxonomy of the gate
type ErrorCategory string

const (
	// Deterministic request failures that short-circuit to BLOCK
	ErrorCategoryMalformedRequest ErrorCategory = "MALFORMED_REQUEST"

	// Collaborator failures that degrade a single check, never the pipeline
	ErrorCategoryCollaborator ErrorCategory = "COLLABORATOR_UNAVAILABLE"
	ErrorCategoryTimeout      ErrorCategory = "TIMEOUT"

	// Forced BLOCK from the circuit breaker; not a failure of the request
	ErrorCategoryCircuitBreached ErrorCategory = "CIRCUIT_BREACHED"

	// Construction-time failures
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
)

// GateError represents a categorized error with component context
type GateError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *GateError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s in %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s in %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *GateError) Unwrap() error {
	return e.Underlying
}

// IsDegradable returns whether this error should degrade a single check to a
// neutral score instead of failing the evaluation
func (e *GateError) IsDegradable() bool {
	return e.Category == ErrorCategoryCollaborator || e.Category == ErrorCategoryTimeout
}

// NewGateError creates a new categorized gate error
func NewGateError(category ErrorCategory, component, operation, message string) *GateError {
	return &GateError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// WrapError wraps an existing error with gate error context
func WrapError(err error, category ErrorCategory, component, operation string) *GateError {
	if err == nil {
		return nil
	}

	return &GateError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
	}
}

// CategoryOf extracts the category of an error, or empty when the error is
// not a GateError
func CategoryOf(err error) ErrorCategory {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}

// Convenience constructors for the common failure paths

// Malformed reports a deterministic structural failure of the request
func Malformed(component, message string) *GateError {
	return NewGateError(ErrorCategoryMalformedRequest, component, "validate", message)
}

// Unavailable reports an unreachable collaborator
func Unavailable(err error, component, operation string) *GateError {
	return WrapError(err, ErrorCategoryCollaborator, component, operation)
}

// Timeout reports a check that exceeded its evaluation deadline
func Timeout(component string) *GateError {
	return NewGateError(ErrorCategoryTimeout, component, "evaluate", "check timed out")
}
