package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExamStatusAt(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	exam := &Exam{
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}

	assert.Equal(t, ExamStatusUpcoming, exam.StatusAt(start.Add(-time.Second)))
	// The window is half-open: the start instant is inside it,
	// the end instant is not.
	assert.Equal(t, ExamStatusActive, exam.StatusAt(start))
	assert.Equal(t, ExamStatusActive, exam.StatusAt(start.Add(time.Hour)))
	assert.Equal(t, ExamStatusCompleted, exam.StatusAt(exam.EndTime))
	assert.Equal(t, ExamStatusCompleted, exam.StatusAt(exam.EndTime.Add(time.Hour)))
}

func TestExamTotalMarksAndLookup(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	exam := &Exam{Questions: []Question{
		{ID: q1, Marks: 5},
		{ID: q2, Marks: 10},
	}}

	assert.Equal(t, 15, exam.TotalMarks())
	assert.Equal(t, q2, exam.Question(q2).ID)
	assert.Nil(t, exam.Question(uuid.New()))
}

func TestAnswerMapFinalStripsUnanswered(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	m := AnswerMap{q1: 2, q2: Unanswered}

	assert.Equal(t, 1, m.Answered())

	final := m.Final()
	assert.Len(t, final, 1)
	assert.Equal(t, 2, final[q1])

	// Clone is independent of the original.
	clone := m.Clone()
	clone[q1] = 0
	assert.Equal(t, 2, m[q1])
}
