// Package session implements the exam session controller: the state machine
// that owns one student's attempt at one exam from first entry until final
// submission. It tracks answers, enforces the time budget, mirrors progress
// to a durable store, and finalizes via the submission store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/observability"
	"github.com/examhall/examportal/internal/progress"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateActive     State = "active"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateClosed     State = "closed"
)

// Controller manages one exam attempt end-to-end. All exported methods are
// safe for concurrent use; the in-memory state is the single source of truth
// and the progress store is a one-directional mirror of it.
type Controller struct {
	deps Deps
	exam *model.Exam
	log  zerolog.Logger

	mu       sync.Mutex
	state    State
	prog     *model.SessionProgress
	final    *model.Submission
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	// saveMu serializes snapshot writes so a slow earlier write can never
	// land after a later one. Snapshots are taken under saveMu at write
	// time, so each write carries the freshest state.
	saveMu sync.Mutex

	// submitMu makes Submit a critical section: a concurrent second submit
	// blocks until the first completes, then observes the finalized state.
	submitMu sync.Mutex
}

// Start resumes an existing session or initializes a fresh one.
//
// The exam must currently be inside its [start, end) window; otherwise a
// *NotAvailableError carrying the actual status is returned. A recorded
// submission for the pair yields ErrAlreadySubmitted. A fresh session is
// persisted immediately so a crash right after initialization is still
// recoverable.
func Start(ctx context.Context, deps Deps, studentID int, examID uuid.UUID) (*Controller, error) {
	exam, err := deps.Catalog.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	now := deps.now()
	if status := exam.StatusAt(now); status != model.ExamStatusActive {
		return nil, &NotAvailableError{Status: status}
	}

	// A finalized attempt is never resumable.
	if _, err := deps.Submissions.Get(ctx, studentID, examID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, ErrSubmissionNotFound) {
		return nil, fmt.Errorf("check existing submission: %w", err)
	}

	log := deps.Log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	prog, err := deps.Progress.Get(ctx, studentID, examID)
	switch {
	case err == nil:
		// Resume verbatim: pointer, answers, and remaining time come from
		// the snapshot, not from the wall clock.
		log.Info().
			Int("remaining_seconds", prog.RemainingSeconds).
			Msg("Session resumed")
		observability.SessionsStarted().WithLabelValues("resumed").Inc()

	case errors.Is(err, progress.ErrNotFound):
		answers := make(model.AnswerMap, len(exam.Questions))
		for i := range exam.Questions {
			answers[exam.Questions[i].ID] = model.Unanswered
		}
		prog = &model.SessionProgress{
			StudentID:        studentID,
			ExamID:           examID,
			CurrentQuestion:  0,
			Answers:          answers,
			RemainingSeconds: exam.DurationMinutes * 60,
			StartedAt:        now,
			UpdatedAt:        now,
		}
		if perr := deps.Progress.Put(ctx, prog); perr != nil {
			observability.ProgressSaveFailures().Inc()
			log.Warn().Err(perr).Msg("Initial progress save failed")
		}
		log.Info().Msg("Session started")
		observability.SessionsStarted().WithLabelValues("new").Inc()

	default:
		return nil, fmt.Errorf("load progress: %w", err)
	}

	c := &Controller{
		deps:  deps,
		exam:  exam,
		log:   log,
		state: StateActive,
		prog:  prog,
		done:  make(chan struct{}),
	}

	c.mu.Lock()
	c.startLoopsLocked()
	c.mu.Unlock()

	return c, nil
}

// ─── Answer capture & navigation ───────────────────────────────────

// SelectAnswer records the student's selection for a question and persists
// the snapshot immediately. Correctness is never exposed here.
func (c *Controller) SelectAnswer(ctx context.Context, questionID uuid.UUID, optionIndex int) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrSessionClosed
	}

	q := c.exam.Question(questionID)
	if q == nil {
		c.mu.Unlock()
		return ErrInvalidAnswer
	}
	if optionIndex != model.Unanswered && (optionIndex < 0 || optionIndex >= len(q.Options)) {
		c.mu.Unlock()
		return ErrInvalidAnswer
	}

	c.prog.Answers[questionID] = optionIndex
	c.prog.UpdatedAt = c.deps.now()
	c.mu.Unlock()

	// Losing a just-made choice is worse than the I/O cost of saving it,
	// so answer changes are never batched.
	c.persist(ctx)
	return nil
}

// Navigate moves the current-question pointer and persists it, so a resume
// lands on the last-viewed question.
func (c *Controller) Navigate(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if index < 0 || index >= len(c.exam.Questions) {
		c.mu.Unlock()
		return ErrInvalidPosition
	}

	c.prog.CurrentQuestion = index
	c.prog.UpdatedAt = c.deps.now()
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// ─── Timing ────────────────────────────────────────────────────────

// Tick decrements the remaining time by one second, floored at zero.
// Reaching zero unconditionally triggers an auto-mode submit — that is the
// core correctness guarantee of a timed exam.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	if c.prog.RemainingSeconds > 0 {
		c.prog.RemainingSeconds--
	}
	expired := c.prog.RemainingSeconds == 0
	if expired {
		c.stopLoopsLocked()
	}
	c.mu.Unlock()

	if expired {
		c.log.Info().Msg("Time expired, auto-submitting")
		if _, err := c.Submit(ctx, model.SubmitModeAuto, true); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
			// The session stays preserved; the recovery sweep or a client
			// retry finishes the job. The timer is not restarted at zero.
			c.log.Error().Err(err).Msg("Auto-submit failed")
		}
	}
}

// RemainingSeconds returns the current countdown value.
func (c *Controller) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prog.RemainingSeconds
}

// ─── Submission ────────────────────────────────────────────────────

// Submit finalizes the attempt. Manual mode with unanswered questions
// requires confirmIncomplete; otherwise a *ConfirmationRequiredError is
// returned and nothing changes. On store failure the session rolls back to
// active, keeping its progress, and the timer resumes only for a manual
// submit with time remaining.
func (c *Controller) Submit(ctx context.Context, mode model.SubmitMode, confirmIncomplete bool) (*model.Submission, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.mu.Lock()
	switch c.state {
	case StateSubmitted:
		final := c.final
		c.mu.Unlock()
		if final != nil {
			return final, nil
		}
		return nil, ErrAlreadySubmitted
	case StateClosed:
		c.mu.Unlock()
		return nil, ErrSessionClosed
	}

	if mode == model.SubmitModeManual && !confirmIncomplete {
		if n := c.unansweredLocked(); n > 0 {
			c.mu.Unlock()
			return nil, &ConfirmationRequiredError{Unanswered: n}
		}
	}

	c.state = StateSubmitting
	c.stopLoopsLocked()
	remaining := c.prog.RemainingSeconds
	snap := c.prog.Clone()
	c.mu.Unlock()

	score, total, pct := Grade(c.exam, snap.Answers)
	sub := &model.Submission{
		ID:          uuid.New(),
		ExamID:      c.exam.ID,
		StudentID:   snap.StudentID,
		Answers:     snap.Answers.Final(),
		StartedAt:   snap.StartedAt,
		SubmittedAt: c.deps.now(),
		Score:       score,
		TotalMarks:  total,
		Percentage:  pct,
		Mode:        mode,
	}

	err := c.deps.Submissions.Create(ctx, sub)
	switch {
	case err == nil:
		observability.Submissions().WithLabelValues(string(mode), "created").Inc()
		c.log.Info().
			Int("score", score).
			Int("total_marks", total).
			Str("mode", string(mode)).
			Msg("Submission recorded")

	case errors.Is(err, ErrDuplicateSubmission):
		// Lost the race against another submit path. Success-equivalent.
		observability.Submissions().WithLabelValues(string(mode), "duplicate").Inc()
		existing, gerr := c.deps.Submissions.Get(ctx, snap.StudentID, c.exam.ID)
		if gerr != nil {
			c.log.Warn().Err(gerr).Msg("Duplicate submit, existing submission not fetchable")
			sub = nil
		} else {
			sub = existing
		}

	default:
		observability.Submissions().WithLabelValues(string(mode), "failed").Inc()
		c.log.Error().Err(err).Msg("Submission store failure, session preserved")

		c.mu.Lock()
		c.state = StateActive
		if mode == model.SubmitModeManual && remaining > 0 {
			c.startLoopsLocked()
		}
		c.mu.Unlock()

		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	// The submission now supersedes the progress snapshot. A failed delete
	// leaves an orphan that Start refuses to resume and the sweep reaps.
	if derr := c.deps.Progress.Delete(ctx, snap.StudentID, c.exam.ID); derr != nil {
		c.log.Warn().Err(derr).Msg("Progress cleanup failed after submission")
	}

	c.mu.Lock()
	c.state = StateSubmitted
	c.final = sub
	c.mu.Unlock()
	c.doneOnce.Do(func() { close(c.done) })

	if sub == nil {
		return nil, ErrAlreadySubmitted
	}
	return sub, nil
}

// ─── Lifecycle ─────────────────────────────────────────────────────

// Close abandons the session: both recurring tasks are cancelled and a final
// snapshot is persisted so a later entry resumes exactly here.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.stopLoopsLocked()
	c.mu.Unlock()

	c.persist(context.Background())
	c.log.Info().Msg("Session abandoned, progress kept")
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UnansweredCount returns how many questions hold no selection, for the
// confirmation prompt before an incomplete manual submit.
func (c *Controller) UnansweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unansweredLocked()
}

// Done is closed once the session reaches the submitted state.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Final returns the recorded submission, or nil before finalization.
func (c *Controller) Final() *model.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.final
}

// ─── Internals ─────────────────────────────────────────────────────

func (c *Controller) unansweredLocked() int {
	return len(c.exam.Questions) - c.prog.Answers.Answered()
}

// startLoopsLocked launches the per-second tick and the snapshot cadence.
// Caller must hold c.mu.
func (c *Controller) startLoopsLocked() {
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	go c.run(c.stopCh)
}

// stopLoopsLocked cancels both recurring tasks. Idempotent; caller must
// hold c.mu.
func (c *Controller) stopLoopsLocked() {
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
}

func (c *Controller) run(stop chan struct{}) {
	tick := time.NewTicker(time.Second)
	save := time.NewTicker(c.deps.saveInterval())
	defer tick.Stop()
	defer save.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			c.Tick(context.Background())
		case <-save.C:
			c.persist(context.Background())
		}
	}
}

// persist mirrors the current in-memory state to the progress store. The
// snapshot is taken under saveMu at write time, so writes always carry the
// freshest state and an earlier slow write can never clobber a later one.
// Failures are logged and left to the next save to repair.
func (c *Controller) persist(ctx context.Context) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if c.state != StateActive && c.state != StateClosed {
		c.mu.Unlock()
		return
	}
	snap := c.prog.Clone()
	c.mu.Unlock()

	if err := c.deps.Progress.Put(ctx, snap); err != nil {
		observability.ProgressSaveFailures().Inc()
		c.log.Warn().Err(err).Msg("Progress save failed, next save retries")
	}
}
