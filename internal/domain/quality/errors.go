package quality

import (
	"errors"
	"fmt"
)

// Error is a failure kind of the workflow engine. Details are attached by
// wrapping, so callers branch with errors.Is on the sentinels below.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Code() string  { return e.code }

var (
	ErrNotFound           = &Error{code: "not_found", msg: "not found"}
	ErrForbidden          = &Error{code: "forbidden", msg: "forbidden"}
	ErrInvalidTransition  = &Error{code: "invalid_transition", msg: "invalid transition"}
	ErrPreconditionFailed = &Error{code: "precondition_failed", msg: "precondition failed"}
	ErrConflict           = &Error{code: "conflict", msg: "conflict"}
	ErrUnavailable        = &Error{code: "unavailable", msg: "unavailable"}
)

// Retryable reports whether the caller may retry the same request after reloading.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable)
}

// Unavailable marks a storage or context failure as the retryable Unavailable kind.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPreconditionFailed}, args...)...)
}

func forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, args...)...)
}
