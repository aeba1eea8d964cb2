package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus is derived from the schedule window, never stored.
type ExamStatus string

const (
	ExamStatusUpcoming  ExamStatus = "upcoming"
	ExamStatusActive    ExamStatus = "active"
	ExamStatusCompleted ExamStatus = "completed"
)

// Exam represents a published exam with its ordered question set.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	Questions       []Question `json:"questions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StatusAt derives the exam status from the schedule window.
// The window is half-open: [StartTime, EndTime).
func (e *Exam) StatusAt(now time.Time) ExamStatus {
	switch {
	case now.Before(e.StartTime):
		return ExamStatusUpcoming
	case now.Before(e.EndTime):
		return ExamStatusActive
	default:
		return ExamStatusCompleted
	}
}

// TotalMarks sums the point value of every question.
func (e *Exam) TotalMarks() int {
	total := 0
	for i := range e.Questions {
		total += e.Questions[i].Marks
	}
	return total
}

// Question returns the question with the given ID, or nil.
func (e *Exam) Question(id uuid.UUID) *Question {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i]
		}
	}
	return nil
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string                  `json:"title" binding:"required,min=3,max=255"`
	Description     string                  `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int                     `json:"duration_minutes" binding:"required,min=1,max=480"`
	StartTime       time.Time               `json:"start_time" binding:"required"`
	EndTime         time.Time               `json:"end_time" binding:"required,gtfield=StartTime"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"omitempty,dive"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string    `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty"`
}
