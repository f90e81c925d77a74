package assess

import (
	"errors"
	"fmt"
)

// Sentinel errors for the session-fatal failure kinds. All store I/O
// failures are mapped to one of these (or to a retryable *WriteError) at the
// engine boundary; raw store errors never reach a screen.
var (
	// ErrDefinitionNotFound means the assessment definition could not be
	// loaded. Fatal to session start; no attempt is consumed.
	ErrDefinitionNotFound = errors.New("assessment definition not found")

	// ErrAttemptLimitReached means the attempt ceiling is already used up,
	// detected either at start or by the re-check at submit time.
	ErrAttemptLimitReached = errors.New("attempt limit reached")

	// ErrEmptyQuestionPool means the definition carries no questions.
	// Fatal to session start.
	ErrEmptyQuestionPool = errors.New("assessment has no questions")

	// ErrAttemptsUnavailable means the attempt ledger could not be read at
	// start, so eligibility is unknown. Fatal to session start; no attempt
	// is consumed.
	ErrAttemptsUnavailable = errors.New("attempt records unavailable")

	// ErrSubmitNotReady means a manual submit was requested before the
	// variant's completion gate was satisfied.
	ErrSubmitNotReady = errors.New("submission requirements not met")
)

// WriteError wraps a failed attempt-record write (or the ledger re-read
// feeding it). It is retryable: the session stays in the submitting phase
// and is never marked completed until the write succeeds, so an attempt is
// not burned without a recorded score.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("result write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err represents a failure the user may retry
// without losing the session.
func IsRetryable(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
