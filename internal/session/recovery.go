package session

import (
	"context"
	"errors"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/observability"
	"github.com/google/uuid"
)

// Recover scans the student's persisted progress entries and auto-submits
// every one whose exam window has already closed. This repairs sessions
// abandoned mid-exam (closed browser, crash) without requiring the student
// to reopen that specific exam. Entries are independent: a failure on one is
// logged and the rest are still processed.
func Recover(ctx context.Context, deps Deps, studentID int) int {
	entries, err := deps.Progress.ListByStudent(ctx, studentID)
	if err != nil {
		deps.Log.Error().Err(err).Int("student_id", studentID).Msg("Recovery scan failed")
		return 0
	}
	return recoverEntries(ctx, deps, entries)
}

// Sweep runs recovery across every persisted progress entry, regardless of
// student. Used by the background recovery worker.
func Sweep(ctx context.Context, deps Deps) int {
	observability.RecoverySweeps().Inc()

	entries, err := deps.Progress.List(ctx)
	if err != nil {
		deps.Log.Error().Err(err).Msg("Recovery sweep scan failed")
		return 0
	}
	return recoverEntries(ctx, deps, entries)
}

func recoverEntries(ctx context.Context, deps Deps, entries []*model.SessionProgress) int {
	recovered := 0
	for _, p := range entries {
		done, err := recoverEntry(ctx, deps, p)
		if err != nil {
			deps.Log.Error().Err(err).
				Int("student_id", p.StudentID).
				Str("exam_id", p.ExamID.String()).
				Msg("Recovery of stale session failed, will retry next sweep")
			continue
		}
		if done {
			recovered++
		}
	}
	return recovered
}

// recoverEntry finalizes one stale progress entry. Returns true when a
// submission was produced (or already existed) and the entry was removed.
func recoverEntry(ctx context.Context, deps Deps, p *model.SessionProgress) (bool, error) {
	exam, err := deps.Catalog.GetExam(ctx, p.ExamID)
	if errors.Is(err, ErrExamNotFound) {
		// The exam was deleted from under the snapshot; nothing to score.
		deps.Log.Warn().
			Str("exam_id", p.ExamID.String()).
			Msg("Dropping progress for deleted exam")
		return false, deps.Progress.Delete(ctx, p.StudentID, p.ExamID)
	}
	if err != nil {
		return false, err
	}

	if deps.now().Before(exam.EndTime) {
		return false, nil // Still resumable.
	}

	score, total, pct := Grade(exam, p.Answers)
	sub := &model.Submission{
		ID:        uuid.New(),
		ExamID:    exam.ID,
		StudentID: p.StudentID,
		Answers:   p.Answers.Final(),
		StartedAt: p.StartedAt,
		// The attempt effectively ended when the window closed.
		SubmittedAt: exam.EndTime,
		Score:       score,
		TotalMarks:  total,
		Percentage:  pct,
		Mode:        model.SubmitModeAuto,
	}

	err = deps.Submissions.Create(ctx, sub)
	switch {
	case err == nil:
		observability.RecoveredSubmissions().Inc()
		deps.Log.Info().
			Int("student_id", p.StudentID).
			Str("exam_id", exam.ID.String()).
			Int("score", score).
			Msg("Stale session auto-submitted")
	case errors.Is(err, ErrDuplicateSubmission):
		// Already finalized elsewhere; just drop the orphan snapshot.
	default:
		return false, err
	}

	if derr := deps.Progress.Delete(ctx, p.StudentID, p.ExamID); derr != nil {
		return true, derr
	}
	return true, nil
}
