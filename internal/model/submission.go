package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmitMode distinguishes user-initiated from expiry-driven submissions.
type SubmitMode string

const (
	SubmitModeManual SubmitMode = "manual"
	SubmitModeAuto   SubmitMode = "auto"
)

// Submission is a finalized, scored exam attempt. Created exactly once per
// (student, exam) pair; immutable afterwards.
type Submission struct {
	ID          uuid.UUID  `json:"id"`
	ExamID      uuid.UUID  `json:"exam_id"`
	StudentID   int        `json:"student_id"`
	Answers     AnswerMap  `json:"answers"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt time.Time  `json:"submitted_at"`
	Score       int        `json:"score"`
	TotalMarks  int        `json:"total_marks"`
	Percentage  int        `json:"percentage"`
	Mode        SubmitMode `json:"mode"`
}

// SubmitRequest is the payload for the manual submit endpoint.
type SubmitRequest struct {
	// ConfirmIncomplete acknowledges that unanswered questions will be
	// submitted as omitted.
	ConfirmIncomplete bool `json:"confirm_incomplete"`
}
