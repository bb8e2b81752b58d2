package models

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")

	// ErrRetryable marks infrastructure failures (timeouts, lock contention)
	// that left no partial state and may be retried by the caller.
	ErrRetryable = errors.New("temporarily unavailable, retry")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrJobNotOpen          = errors.New("job is not open for quotes")
	ErrDuplicateQuote      = errors.New("professional already quoted this job")
	ErrNotOwner            = errors.New("actor does not own this job")
	ErrAlreadyDecided      = errors.New("quote already decided")
	ErrJobClosed           = errors.New("job no longer accepts decisions")
	ErrHasQuotes           = errors.New("job has quotes")
	ErrNoQuotes            = errors.New("job has no quotes, delete it instead")
	ErrAlreadyTerminal     = errors.New("job already in terminal state")
	ErrContactLocked       = errors.New("contact details locked until a quote is accepted")

	// ErrProfileMissing is the store-level signal that a referenced profile row
	// does not exist. Profile repair consumes it; callers see ErrProfileInactive.
	ErrProfileMissing  = errors.New("referenced profile does not exist")
	ErrProfileInactive = errors.New("profile inactive, please sign in again")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
