package session

import (
	"time"

	"github.com/examhall/examportal/internal/model"
	"github.com/google/uuid"
)

// QuestionView is a question as exposed to the student taking the exam.
// The correct option is never included before submission.
type QuestionView struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Options  []string  `json:"options"`
	Marks    int       `json:"marks"`
	OrderNum int       `json:"order_num"`
}

// View is a read-only snapshot of a live session, suitable for rendering the
// exam-taking page after entry or reload.
type View struct {
	ExamID           uuid.UUID       `json:"exam_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	DurationMinutes  int             `json:"duration_minutes"`
	Questions        []QuestionView  `json:"questions"`
	CurrentQuestion  int             `json:"current_question"`
	Answers          model.AnswerMap `json:"answers"`
	RemainingSeconds int             `json:"remaining_seconds"`
	StartedAt        time.Time       `json:"started_at"`
	UnansweredCount  int             `json:"unanswered_count"`
}

// View returns a consistent snapshot of the session state.
func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()

	questions := make([]QuestionView, len(c.exam.Questions))
	for i := range c.exam.Questions {
		q := &c.exam.Questions[i]
		questions[i] = QuestionView{
			ID:       q.ID,
			Text:     q.Text,
			Options:  q.Options,
			Marks:    q.Marks,
			OrderNum: q.OrderNum,
		}
	}

	return &View{
		ExamID:           c.exam.ID,
		Title:            c.exam.Title,
		Description:      c.exam.Description,
		DurationMinutes:  c.exam.DurationMinutes,
		Questions:        questions,
		CurrentQuestion:  c.prog.CurrentQuestion,
		Answers:          c.prog.Answers.Clone(),
		RemainingSeconds: c.prog.RemainingSeconds,
		StartedAt:        c.prog.StartedAt,
		UnansweredCount:  c.unansweredLocked(),
	}
}
