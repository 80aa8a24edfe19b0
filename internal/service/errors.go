package service

import (
	"errors"
	"fmt"
)

// Kind classifies workflow failures so callers can decide whether to retry,
// re-fetch state, or give up. Only KindUnavailable is safe to retry blindly.
type Kind string

const (
	// KindNotFound signals a missing template, submission, or step.
	KindNotFound Kind = "not_found"

	// KindInvalidTemplate signals malformed step ordering: non-contiguous,
	// duplicated, or empty order values.
	KindInvalidTemplate Kind = "invalid_template"

	// KindInvalidTransition signals the submission's status does not permit
	// the requested operation, e.g. submitting twice or acting on a
	// terminal submission.
	KindInvalidTransition Kind = "invalid_transition"

	// KindStepOutOfOrder signals an act on a step other than the current one.
	KindStepOutOfOrder Kind = "step_out_of_order"

	// KindForbidden signals the actor's role does not match the step's
	// required approver role.
	KindForbidden Kind = "forbidden"

	// KindConflict signals a lost race on the same step; the caller should
	// re-fetch submission state before attempting anything else.
	KindConflict Kind = "conflict"

	// KindUnavailable wraps persistence-layer I/O failures. Retryable.
	KindUnavailable Kind = "unavailable"
)

// Error is the structured failure type returned by the workflow engine.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the operation might succeed if simply retried.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

// E builds a workflow error with a formatted message.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a workflow error around an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from an error chain, or "" if err is not a
// workflow error.
func KindOf(err error) Kind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
