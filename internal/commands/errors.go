package commands

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned for names not in the registry.
var ErrUnknownCommand = errors.New("unknown command")

// FieldError describes why one parameter was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every rejected parameter of one command.
type ValidationError struct {
	Command Name         `json:"command"`
	Fields  []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("invalid parameters for %s: %s", e.Command, strings.Join(parts, "; "))
}

// ExecutionError wraps a handler failure, including recovered panics.
type ExecutionError struct {
	Command Name
	Err     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

// Unwrap returns the handler error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsExecutionError reports whether err is or wraps an *ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
