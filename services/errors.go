package services

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input. Nothing was written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// IncompleteSubmissionError lists the questions left unanswered.
type IncompleteSubmissionError struct {
	Missing []string
}

func (e *IncompleteSubmissionError) Error() string {
	return "missing answers for questions: " + strings.Join(e.Missing, ", ")
}

type DuplicateSubmissionError struct {
	SurveyID string
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("a response to survey %q was already submitted from this client", e.SurveyID)
}

// ConflictError reports an operation that is not allowed in the current
// state, such as editing an answered survey or submitting to a closed one.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

var ErrUnauthorized = errors.New("unauthorized")

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
