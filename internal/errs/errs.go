package errs

import (
	"errors"
	"fmt"
)

// Domain error kinds. Handlers map these to HTTP codes; everything else is
// treated as internal.
var (
	// ErrValidation: malformed or missing input, rejected before any state change.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: an active claim already exists for the token, or the record
	// changed underneath the writer.
	ErrConflict = errors.New("conflict")
	// ErrNotFound: unknown claim id.
	ErrNotFound = errors.New("not found")
	// ErrStaleState: transition attempted on a claim that already reached a
	// terminal state. Final, not retryable.
	ErrStaleState = errors.New("stale state")
	// ErrEvaluatorUnavailable: a verification collaborator (DNS, signature
	// service) stayed unreachable past the retry budget. Retryable later.
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func StaleState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStaleState, fmt.Sprintf(format, args...))
}

func EvaluatorUnavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrEvaluatorUnavailable, fmt.Sprintf(format, args...))
}
