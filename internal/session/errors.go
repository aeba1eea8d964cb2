package session

import (
	"errors"
	"fmt"

	"github.com/examhall/examportal/internal/model"
)

// Sentinel errors surfaced by the session controller and its ports.
var (
	// ErrExamNotFound is returned by Catalog implementations when the exam
	// identifier does not resolve.
	ErrExamNotFound = errors.New("exam not found")

	// ErrInvalidAnswer rejects an unknown question ID or an option index
	// outside the question's option list.
	ErrInvalidAnswer = errors.New("invalid answer selection")

	// ErrInvalidPosition rejects navigation outside the question range.
	ErrInvalidPosition = errors.New("question index out of range")

	// ErrAlreadySubmitted means a submission already exists for the pair.
	// Callers treat it as a success-equivalent no-op.
	ErrAlreadySubmitted = errors.New("exam already submitted")

	// ErrSubmissionFailed wraps a Submission Store failure. The session is
	// preserved and the submit may be retried.
	ErrSubmissionFailed = errors.New("submission could not be recorded")

	// ErrSessionClosed rejects operations on a finalized or abandoned session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrSubmissionNotFound is returned by SubmissionStore.Get on a miss.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrDuplicateSubmission is returned by SubmissionStore.Create when the
	// (exam, student) uniqueness constraint fires.
	ErrDuplicateSubmission = errors.New("submission already exists")
)

// NotAvailableError reports that the exam is outside its active window.
// It carries the actual status so the caller can explain why.
type NotAvailableError struct {
	Status model.ExamStatus
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("exam is not available (status: %s)", e.Status)
}

// ConfirmationRequiredError aborts a manual submit that would drop unanswered
// questions without the user's explicit confirmation.
type ConfirmationRequiredError struct {
	Unanswered int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%d questions unanswered; confirmation required", e.Unanswered)
}
