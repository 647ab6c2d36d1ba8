package triage

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAge      = errors.New("age must be a positive whole number")
	ErrNoSymptoms      = errors.New("at least one symptom is required")
	ErrMissingDuration = errors.New("symptom duration is required")
	ErrInvalidGender   = errors.New("gender must be Male, Female or Other")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionClosed      = errors.New("session is no longer accepting messages")
	ErrTurnInFlight       = errors.New("a message is already being processed")
	ErrBlankTurn          = errors.New("message is empty")
	ErrInvalidTransition  = errors.New("invalid session status transition")
	ErrRecordNotFound     = errors.New("history record not found")
	ErrReportsUnavailable = errors.New("report rendering is not configured")
	ErrUserRequired       = errors.New("a user id is required to save the session")
)

// Remote reasoning failures. Reasoner implementations wrap provider errors
// with one of these so the pipeline can pick a fallback.
var (
	ErrTransport   = errors.New("reasoning service unavailable")
	ErrRateLimited = errors.New("reasoning service rate limit exceeded")
)

type FieldError struct {
	Field string
	Err   error
}

func (f FieldError) Error() string {
	return f.Field + ": " + f.Err.Error()
}

// ValidationError reports every intake field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "invalid intake: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		errs = append(errs, f.Err)
	}
	return errs
}

func (e *ValidationError) add(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Err: err})
}
