package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/HendryAvila/taskpilot/internal/templates"
)

// User-facing messages. Causes are logged, never shown.
const (
	msgEmpty         = "Your request is empty. Tell me what you would like to do, for example \"show my tasks\"."
	msgTooLong       = "Your request is too long (%d characters, at most %d). Please shorten it."
	msgBadSession    = "That conversation does not exist or is not yours. Start a new conversation and try again."
	msgRateLimited   = "Rate limit exceeded: too many requests. Please try again in %s."
	msgRateLimitBusy = "Rate limit check is unavailable right now. Please try again shortly."
	msgUpstream      = "The assistant service is temporarily unavailable. Please try again later."
	msgInternal      = "Something went wrong while preparing your request. Please try again later."
	msgNoCommand     = "I could not match your request to an action. Try, for example, \"show my tasks\" or \"create a task\"."
)

// RateLimitIndicator appears in every rate-limit message.
const RateLimitIndicator = "Rate limit"

// InputError rejects an utterance before any model call.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "invalid input: " + e.Reason }

// RateLimitError rejects a request because the user's window is exhausted
// or could not be checked.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limit check failed: %v", e.Err)
	}
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// UpstreamServiceError is a failed model call at a stage that cannot degrade.
type UpstreamServiceError struct {
	Stage string
	Err   error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("upstream service failed during %s: %v", e.Stage, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

// PromptError is a prompt that could not be rendered. No model call was made.
type PromptError struct {
	Kind templates.Kind
	Err  error
}

func (e *PromptError) Error() string {
	return fmt.Sprintf("render %s prompt: %v", e.Kind, e.Err)
}

func (e *PromptError) Unwrap() error { return e.Err }

// IsInputError reports whether err is or wraps an *InputError.
func IsInputError(err error) bool {
	var e *InputError
	return errors.As(err, &e)
}

// IsRateLimitError reports whether err is or wraps a *RateLimitError.
func IsRateLimitError(err error) bool {
	var e *RateLimitError
	return errors.As(err, &e)
}

// IsUpstreamServiceError reports whether err is or wraps an *UpstreamServiceError.
func IsUpstreamServiceError(err error) bool {
	var e *UpstreamServiceError
	return errors.As(err, &e)
}

// ErrorKind classifies a per-command failure.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindExecution  ErrorKind = "execution"
)

func formatRetry(d time.Duration) string {
	if d <= 0 {
		return "a moment"
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", secs)
}
