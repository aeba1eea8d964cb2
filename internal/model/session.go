package model

import (
	"time"

	"github.com/google/uuid"
)

// Unanswered is the sentinel option index meaning "no selection yet".
const Unanswered = -1

// AnswerMap maps question IDs to selected option indexes.
type AnswerMap map[uuid.UUID]int

// Clone returns a deep copy of the map.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Answered counts entries holding a real selection.
func (m AnswerMap) Answered() int {
	n := 0
	for _, v := range m {
		if v != Unanswered {
			n++
		}
	}
	return n
}

// Final returns a copy containing only answered questions.
func (m AnswerMap) Final() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		if v != Unanswered {
			out[k] = v
		}
	}
	return out
}

// SessionProgress is the durably persisted snapshot of one student's attempt
// at one exam. It is the only mutable entity the session controller owns and
// exists from first entry until the attempt is finalized.
type SessionProgress struct {
	StudentID        int       `json:"student_id"`
	ExamID           uuid.UUID `json:"exam_id"`
	CurrentQuestion  int       `json:"current_question"`
	Answers          AnswerMap `json:"answers"`
	RemainingSeconds int       `json:"remaining_seconds"`
	StartedAt        time.Time `json:"started_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (p *SessionProgress) Clone() *SessionProgress {
	out := *p
	out.Answers = p.Answers.Clone()
	return &out
}
