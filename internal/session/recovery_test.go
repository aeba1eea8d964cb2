package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/progress"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClosedExam(now time.Time) *model.Exam {
	examID := uuid.New()
	return &model.Exam{
		ID:              examID,
		Title:           "Closed Exam",
		DurationMinutes: 30,
		StartTime:       now.Add(-3 * time.Hour),
		EndTime:         now.Add(-time.Hour),
		Questions: []model.Question{
			{ID: uuid.New(), ExamID: examID, Options: []string{"a", "b"}, CorrectOption: 0, Marks: 10, OrderNum: 0},
			{ID: uuid.New(), ExamID: examID, Options: []string{"a", "b"}, CorrectOption: 1, Marks: 10, OrderNum: 1},
		},
	}
}

func seedProgress(t *testing.T, store *progress.MemoryStore, studentID int, exam *model.Exam, answers model.AnswerMap) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), &model.SessionProgress{
		StudentID:        studentID,
		ExamID:           exam.ID,
		Answers:          answers,
		RemainingSeconds: 90,
		StartedAt:        exam.StartTime,
	}))
}

func TestRecoverFinalizesStaleSessions(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	closed := newClosedExam(now)
	open := newTestExam(now, 30)
	store := progress.NewMemoryStore()
	subs := newFakeSubmissionStore()
	deps := Deps{
		Catalog:     &stubCatalog{exams: map[uuid.UUID]*model.Exam{closed.ID: closed, open.ID: open}},
		Progress:    store,
		Submissions: subs,
		Log:         zerolog.Nop(),
		Now:         func() time.Time { return now },
	}

	// One answer correct on the closed exam.
	seedProgress(t, store, testStudentID, closed, model.AnswerMap{closed.Questions[0].ID: 0})
	// The open exam is still resumable and must be left alone.
	seedProgress(t, store, testStudentID, open, model.AnswerMap{})

	recovered := Recover(ctx, deps, testStudentID)
	assert.Equal(t, 1, recovered)

	sub, err := subs.Get(ctx, testStudentID, closed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmitModeAuto, sub.Mode)
	assert.Equal(t, 10, sub.Score)
	assert.Equal(t, 20, sub.TotalMarks)
	// The attempt ended when the window closed, not when the sweep ran.
	assert.Equal(t, closed.EndTime, sub.SubmittedAt)

	// Finalized progress is removed; the live attempt is retained.
	_, err = store.Get(ctx, testStudentID, closed.ID)
	assert.ErrorIs(t, err, progress.ErrNotFound)
	_, err = store.Get(ctx, testStudentID, open.ID)
	assert.NoError(t, err)
}

func TestRecoverOneFailureDoesNotBlockOthers(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	closedA := newClosedExam(now)
	closedB := newClosedExam(now)
	store := progress.NewMemoryStore()
	subs := newFakeSubmissionStore()

	// closedB is missing from the catalog: its snapshot is an orphan.
	deps := Deps{
		Catalog:     &stubCatalog{exams: map[uuid.UUID]*model.Exam{closedA.ID: closedA}},
		Progress:    store,
		Submissions: subs,
		Log:         zerolog.Nop(),
		Now:         func() time.Time { return now },
	}

	seedProgress(t, store, 1, closedA, model.AnswerMap{})
	seedProgress(t, store, 2, closedB, model.AnswerMap{})

	recovered := Sweep(ctx, deps)
	assert.Equal(t, 1, recovered)

	// The orphan snapshot is dropped without a submission.
	_, err := store.Get(ctx, 2, closedB.ID)
	assert.ErrorIs(t, err, progress.ErrNotFound)
	_, err = subs.Get(ctx, 2, closedB.ID)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestRecoverRetainsEntryOnStoreFailure(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	closed := newClosedExam(now)
	store := progress.NewMemoryStore()
	subs := newFakeSubmissionStore()
	subs.setCreateErr(errors.New("db down"))
	deps := Deps{
		Catalog:     &stubCatalog{exams: map[uuid.UUID]*model.Exam{closed.ID: closed}},
		Progress:    store,
		Submissions: subs,
		Log:         zerolog.Nop(),
		Now:         func() time.Time { return now },
	}

	seedProgress(t, store, testStudentID, closed, model.AnswerMap{})

	assert.Equal(t, 0, Sweep(ctx, deps))

	// The snapshot stays put for the next sweep to retry.
	_, err := store.Get(ctx, testStudentID, closed.ID)
	require.NoError(t, err)

	subs.setCreateErr(nil)
	assert.Equal(t, 1, Sweep(ctx, deps))
}
