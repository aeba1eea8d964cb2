package session

import (
	"math"

	"github.com/examhall/examportal/internal/model"
)

// Grade computes the final score for an answer set against an exam's question
// list. A question absent from the map, or holding the unanswered sentinel,
// scores zero. Percentage is rounded to the nearest integer.
func Grade(exam *model.Exam, answers model.AnswerMap) (score, total, percentage int) {
	for i := range exam.Questions {
		q := &exam.Questions[i]
		total += q.Marks
		if sel, ok := answers[q.ID]; ok && sel == q.CorrectOption {
			score += q.Marks
		}
	}
	if total > 0 {
		percentage = int(math.Round(float64(score) / float64(total) * 100))
	}
	return score, total, percentage
}
