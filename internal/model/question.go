package model

import (
	"github.com/google/uuid"
)

// Question represents a single multiple-choice exam question.
// Immutable once the owning exam's window has opened.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	Marks         int       `json:"marks"`
	OrderNum      int       `json:"order_num"`
}

// CreateQuestionRequest is the payload for adding a question to an exam.
type CreateQuestionRequest struct {
	Text          string   `json:"text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,max=10,dive,required,max=500"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
	Marks         int      `json:"marks" binding:"required,min=1,max=100"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
