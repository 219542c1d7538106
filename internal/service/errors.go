package service

import (
	"errors"
	"fmt"
)

// Validation errors returned synchronously by the session. None of them
// change state.
var (
	ErrUnknownSection      = errors.New("unknown section")
	ErrSlotOutOfRange      = errors.New("answer slot out of range")
	ErrInvalidAnswerValue  = errors.New("invalid answer value")
	ErrStudentNameRequired = errors.New("student name is required")
)

// Session lifecycle errors.
var (
	ErrSessionNotFound    = errors.New("exam session not found")
	ErrSessionClosed      = errors.New("exam session is closed")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrAlreadySubmitted   = errors.New("exam already submitted")
	ErrInvalidExamContent = errors.New("invalid exam content")
	ErrExamUnavailable    = errors.New("exam could not be loaded")
)

// NavigationError is returned when the gate refuses a section switch.
type NavigationError struct {
	Section string
	Reason  string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s refused: %s", e.Section, e.Reason)
}

// SubmissionErrorKind separates transport failures from backend rejections.
type SubmissionErrorKind string

const (
	SubmissionNetwork SubmissionErrorKind = "network"
	SubmissionServer  SubmissionErrorKind = "server"
)

// SubmissionError reports a failed submit round trip. The session stays
// resubmittable after either kind.
type SubmissionError struct {
	Kind    SubmissionErrorKind
	Status  int
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Kind == SubmissionServer {
		return fmt.Sprintf("submission rejected (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Retryable is always true; no submission failure is terminal.
func (e *SubmissionError) Retryable() bool { return true }
