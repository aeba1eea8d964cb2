package session

import (
	"testing"
	"time"

	"github.com/examhall/examportal/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestGrade(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	exam := newTestExam(now, 30)
	q := exam.Questions

	t.Run("all correct", func(t *testing.T) {
		score, total, pct := Grade(exam, model.AnswerMap{q[0].ID: 0, q[1].ID: 1, q[2].ID: 2})
		assert.Equal(t, 15, score)
		assert.Equal(t, 15, total)
		assert.Equal(t, 100, pct)
	})

	t.Run("partial rounds to nearest", func(t *testing.T) {
		score, total, pct := Grade(exam, model.AnswerMap{q[0].ID: 0, q[1].ID: 1, q[2].ID: 0})
		assert.Equal(t, 10, score)
		assert.Equal(t, 15, total)
		assert.Equal(t, 67, pct)
	})

	t.Run("unanswered sentinel never scores", func(t *testing.T) {
		score, _, pct := Grade(exam, model.AnswerMap{
			q[0].ID: model.Unanswered,
			q[1].ID: model.Unanswered,
			q[2].ID: model.Unanswered,
		})
		assert.Equal(t, 0, score)
		assert.Equal(t, 0, pct)
	})

	t.Run("empty answer map", func(t *testing.T) {
		score, total, pct := Grade(exam, model.AnswerMap{})
		assert.Equal(t, 0, score)
		assert.Equal(t, 15, total)
		assert.Equal(t, 0, pct)
	})

	t.Run("exam without questions", func(t *testing.T) {
		empty := &model.Exam{}
		score, total, pct := Grade(empty, model.AnswerMap{})
		assert.Equal(t, 0, score)
		assert.Equal(t, 0, total)
		assert.Equal(t, 0, pct)
	})
}
