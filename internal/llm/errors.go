package llm

import (
	"errors"
	"fmt"
)

// Kind classifies a ServiceError.
type Kind string

const (
	KindRequest   Kind = "request"
	KindTransport Kind = "transport"
	KindTimeout   Kind = "timeout"
	KindStatus    Kind = "status"
	KindMalformed Kind = "malformed"
)

// ServiceError is the uniform failure of a model call. Body holds a truncated
// upstream error body for logging only; it must not reach end users.
type ServiceError struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("llm service error: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("llm service error (%s): %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("llm service error (%s)", e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err is or wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
