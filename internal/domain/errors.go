package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	// ErrNotFound indicates a task, version, group, or endpoint was not found
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID indicates a creation collision on a caller-assigned id
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidInput indicates invalid user input or configuration
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMCallFailed indicates the upstream model API call failed
	ErrLLMCallFailed = errors.New("llm call failed")

	// ErrPersistDeferred indicates an in-memory mutation was applied but the
	// snapshot write to disk failed; durability is degraded, not lost progress
	ErrPersistDeferred = errors.New("persist deferred")
)

// ValidationError represents an input validation failure on a named field.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s (value: %q)", e.Field, e.Message, e.Value)
}

// Is implements error comparison for errors.Is
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}
