package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/progress"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Fakes ─────────────────────────────────────────────────────────

type stubCatalog struct {
	exams map[uuid.UUID]*model.Exam
}

func (s *stubCatalog) GetExam(_ context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, ok := s.exams[examID]
	if !ok {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

type subKey struct {
	studentID int
	examID    uuid.UUID
}

// fakeSubmissionStore mimics the one-row-per-pair uniqueness constraint and
// supports error injection.
type fakeSubmissionStore struct {
	mu          sync.Mutex
	subs        map[subKey]*model.Submission
	createErr   error
	createCalls int
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{subs: make(map[subKey]*model.Submission)}
}

func (f *fakeSubmissionStore) Get(_ context.Context, studentID int, examID uuid.UUID) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub, ok := f.subs[subKey{studentID, examID}]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

func (f *fakeSubmissionStore) Create(_ context.Context, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}

	key := subKey{sub.StudentID, sub.ExamID}
	if _, exists := f.subs[key]; exists {
		return ErrDuplicateSubmission
	}
	f.subs[key] = sub
	return nil
}

func (f *fakeSubmissionStore) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeSubmissionStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *fakeSubmissionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// ─── Fixtures ──────────────────────────────────────────────────────

const testStudentID = 42

func newTestExam(now time.Time, durationMinutes int) *model.Exam {
	examID := uuid.New()
	return &model.Exam{
		ID:              examID,
		Title:           "Unit Test Exam",
		DurationMinutes: durationMinutes,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		Questions: []model.Question{
			{ID: uuid.New(), ExamID: examID, Text: "Q1", Options: []string{"a", "b", "c"}, CorrectOption: 0, Marks: 5, OrderNum: 0},
			{ID: uuid.New(), ExamID: examID, Text: "Q2", Options: []string{"a", "b", "c"}, CorrectOption: 1, Marks: 5, OrderNum: 1},
			{ID: uuid.New(), ExamID: examID, Text: "Q3", Options: []string{"a", "b", "c"}, CorrectOption: 2, Marks: 5, OrderNum: 2},
		},
	}
}

type testEnv struct {
	exam  *model.Exam
	store *progress.MemoryStore
	subs  *fakeSubmissionStore
	deps  Deps
	now   time.Time
}

func newTestEnv(t *testing.T, durationMinutes int) *testEnv {
	t.Helper()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	exam := newTestExam(now, durationMinutes)

	env := &testEnv{
		exam:  exam,
		store: progress.NewMemoryStore(),
		subs:  newFakeSubmissionStore(),
		now:   now,
	}
	env.deps = Deps{
		Catalog:     &stubCatalog{exams: map[uuid.UUID]*model.Exam{exam.ID: exam}},
		Progress:    env.store,
		Submissions: env.subs,
		Log:         zerolog.Nop(),
		Now:         func() time.Time { return env.now },
		// Long enough that the snapshot ticker never fires mid-test.
		SaveInterval: time.Hour,
	}
	return env
}

func (e *testEnv) start(t *testing.T) *Controller {
	t.Helper()
	c, err := Start(context.Background(), e.deps, testStudentID, e.exam.ID)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// ─── Initialization & resume ───────────────────────────────────────

func TestStartInitializesFreshSession(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)

	view := c.View()
	assert.Equal(t, 30*60, view.RemainingSeconds)
	assert.Equal(t, 0, view.CurrentQuestion)
	assert.Equal(t, 3, view.UnansweredCount)
	assert.Len(t, view.Answers, 3)
	for _, v := range view.Answers {
		assert.Equal(t, model.Unanswered, v)
	}

	// The fresh session is persisted immediately, so a crash right after
	// entry still resumes.
	p, err := env.store.Get(context.Background(), testStudentID, env.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 30*60, p.RemainingSeconds)
}

func TestStartResumesSnapshotVerbatim(t *testing.T) {
	env := newTestEnv(t, 30)
	q0 := env.exam.Questions[0].ID

	saved := &model.SessionProgress{
		StudentID:        testStudentID,
		ExamID:           env.exam.ID,
		CurrentQuestion:  2,
		Answers:          model.AnswerMap{q0: 1},
		RemainingSeconds: 137,
		StartedAt:        env.now.Add(-20 * time.Minute),
	}
	require.NoError(t, env.store.Put(context.Background(), saved))

	c := env.start(t)

	// Remaining time comes from the snapshot, never from the wall clock.
	view := c.View()
	assert.Equal(t, 137, view.RemainingSeconds)
	assert.Equal(t, 2, view.CurrentQuestion)
	assert.Equal(t, 1, view.Answers[q0])
}

func TestStartRefusesFinalizedAttempt(t *testing.T) {
	env := newTestEnv(t, 30)
	env.subs.subs[subKey{testStudentID, env.exam.ID}] = &model.Submission{ID: uuid.New()}

	_, err := Start(context.Background(), env.deps, testStudentID, env.exam.ID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestStartOutsideWindow(t *testing.T) {
	env := newTestEnv(t, 30)

	env.now = env.exam.StartTime.Add(-time.Minute)
	_, err := Start(context.Background(), env.deps, testStudentID, env.exam.ID)
	var notAvail *NotAvailableError
	require.ErrorAs(t, err, &notAvail)
	assert.Equal(t, model.ExamStatusUpcoming, notAvail.Status)

	// The end boundary is exclusive.
	env.now = env.exam.EndTime
	_, err = Start(context.Background(), env.deps, testStudentID, env.exam.ID)
	require.ErrorAs(t, err, &notAvail)
	assert.Equal(t, model.ExamStatusCompleted, notAvail.Status)
}

// ─── Answer capture & navigation ───────────────────────────────────

func TestSelectAnswerValidatesAndPersists(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)
	ctx := context.Background()
	q0 := env.exam.Questions[0].ID

	require.NoError(t, c.SelectAnswer(ctx, q0, 2))
	assert.Equal(t, 2, c.View().Answers[q0])

	// Each answer change is mirrored to the store immediately.
	p, err := env.store.Get(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Answers[q0])

	// The sentinel clears a selection.
	require.NoError(t, c.SelectAnswer(ctx, q0, model.Unanswered))
	assert.Equal(t, 3, c.UnansweredCount())

	assert.ErrorIs(t, c.SelectAnswer(ctx, uuid.New(), 0), ErrInvalidAnswer)
	assert.ErrorIs(t, c.SelectAnswer(ctx, q0, 3), ErrInvalidAnswer)
	assert.ErrorIs(t, c.SelectAnswer(ctx, q0, -2), ErrInvalidAnswer)
}

func TestNavigateBounds(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)
	ctx := context.Background()

	require.NoError(t, c.Navigate(ctx, 2))
	assert.Equal(t, 2, c.View().CurrentQuestion)

	assert.ErrorIs(t, c.Navigate(ctx, 3), ErrInvalidPosition)
	assert.ErrorIs(t, c.Navigate(ctx, -1), ErrInvalidPosition)

	p, err := env.store.Get(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentQuestion)
}

// ─── Timing ────────────────────────────────────────────────────────

func TestTickCountsDownAndFloorsAtZero(t *testing.T) {
	env := newTestEnv(t, 30)
	env.deps.SaveInterval = time.Hour
	ctx := context.Background()

	saved := &model.SessionProgress{
		StudentID:        testStudentID,
		ExamID:           env.exam.ID,
		Answers:          model.AnswerMap{env.exam.Questions[0].ID: 0},
		RemainingSeconds: 2,
		StartedAt:        env.now,
	}
	require.NoError(t, env.store.Put(ctx, saved))

	c := env.start(t)
	require.Equal(t, 2, c.RemainingSeconds())

	c.Tick(ctx)
	assert.Equal(t, 1, c.RemainingSeconds())
	assert.Equal(t, StateActive, c.State())

	// Reaching zero finalizes in auto mode without confirmation.
	c.Tick(ctx)
	assert.Equal(t, 0, c.RemainingSeconds())
	assert.Equal(t, StateSubmitted, c.State())

	sub := c.Final()
	require.NotNil(t, sub)
	assert.Equal(t, model.SubmitModeAuto, sub.Mode)
	assert.Equal(t, 5, sub.Score)

	// Further ticks are no-ops on a finalized session.
	c.Tick(ctx)
	assert.Equal(t, 0, c.RemainingSeconds())

	_, err := env.store.Get(ctx, testStudentID, env.exam.ID)
	assert.ErrorIs(t, err, progress.ErrNotFound)
}

func TestExpiryDoesNotRestartTimerOnStoreFailure(t *testing.T) {
	env := newTestEnv(t, 30)
	ctx := context.Background()

	require.NoError(t, env.store.Put(ctx, &model.SessionProgress{
		StudentID:        testStudentID,
		ExamID:           env.exam.ID,
		Answers:          model.AnswerMap{},
		RemainingSeconds: 1,
		StartedAt:        env.now,
	}))
	env.subs.setCreateErr(errors.New("db down"))

	c := env.start(t)
	c.Tick(ctx)

	// The failed auto-submit rolls back to active with zero remaining; the
	// recovery sweep or a client retry finishes the job.
	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, 0, c.RemainingSeconds())

	// Progress survives the failed attempt.
	_, err := env.store.Get(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)

	env.subs.setCreateErr(nil)
	sub, err := c.Submit(ctx, model.SubmitModeAuto, true)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, c.State())
	assert.NotNil(t, sub)
}

// ─── Submission ────────────────────────────────────────────────────

func TestManualSubmitRequiresConfirmationWhenIncomplete(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)
	ctx := context.Background()

	require.NoError(t, c.SelectAnswer(ctx, env.exam.Questions[0].ID, 0))

	_, err := c.Submit(ctx, model.SubmitModeManual, false)
	var confirm *ConfirmationRequiredError
	require.ErrorAs(t, err, &confirm)
	assert.Equal(t, 2, confirm.Unanswered)

	// Nothing changed: still active, still resumable, nothing recorded.
	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, 0, env.subs.count())

	sub, err := c.Submit(ctx, model.SubmitModeManual, true)
	require.NoError(t, err)
	// Unanswered questions are omitted from the recorded answer set.
	assert.Len(t, sub.Answers, 1)
	assert.Equal(t, model.SubmitModeManual, sub.Mode)
}

func TestSubmitScoring(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)
	ctx := context.Background()

	// Two correct out of three, 5 marks each: 10/15 rounds to 67%.
	require.NoError(t, c.SelectAnswer(ctx, env.exam.Questions[0].ID, 0))
	require.NoError(t, c.SelectAnswer(ctx, env.exam.Questions[1].ID, 1))
	require.NoError(t, c.SelectAnswer(ctx, env.exam.Questions[2].ID, 0))

	sub, err := c.Submit(ctx, model.SubmitModeManual, true)
	require.NoError(t, err)
	assert.Equal(t, 10, sub.Score)
	assert.Equal(t, 15, sub.TotalMarks)
	assert.Equal(t, 67, sub.Percentage)
}

func TestSubmitFailureRollsBackAndRetains(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)
	ctx := context.Background()

	require.NoError(t, c.SelectAnswer(ctx, env.exam.Questions[0].ID, 0))
	env.subs.setCreateErr(errors.New("connection refused"))

	_, err := c.Submit(ctx, model.SubmitModeManual, true)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, StateActive, c.State())

	// The answer survives the failed submit and the retry succeeds.
	env.subs.setCreateErr(nil)
	sub, err := c.Submit(ctx, model.SubmitModeManual, true)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Answers[env.exam.Questions[0].ID])
}

func TestSubmitIdempotent(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)
	ctx := context.Background()

	first, err := c.Submit(ctx, model.SubmitModeManual, true)
	require.NoError(t, err)

	// A repeat submit returns the recorded result without a second write.
	calls := env.subs.calls()
	second, err := c.Submit(ctx, model.SubmitModeManual, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, calls, env.subs.calls())
}

func TestConcurrentSubmitRecordsExactlyOnce(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)
	ctx := context.Background()

	const workers = 8
	results := make([]*model.Submission, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := c.Submit(ctx, model.SubmitModeManual, true)
			assert.NoError(t, err)
			results[i] = sub
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, env.subs.count())
	for i := 1; i < workers; i++ {
		assert.Equal(t, results[0].ID, results[i].ID)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestCloseKeepsProgressResumable(t *testing.T) {
	env := newTestEnv(t, 30)
	ctx := context.Background()
	q0 := env.exam.Questions[0].ID

	c := env.start(t)
	require.NoError(t, c.SelectAnswer(ctx, q0, 1))
	c.Close()

	assert.Equal(t, StateClosed, c.State())
	_, err := c.Submit(ctx, model.SubmitModeManual, true)
	assert.ErrorIs(t, err, ErrSessionClosed)

	// A new controller picks up exactly where the abandoned one left off.
	c2 := env.start(t)
	view := c2.View()
	assert.Equal(t, 1, view.Answers[q0])
}

func TestDoneSignalsOnFinalize(t *testing.T) {
	env := newTestEnv(t, 30)
	c := env.start(t)

	select {
	case <-c.Done():
		t.Fatal("done closed before submit")
	default:
	}

	_, err := c.Submit(context.Background(), model.SubmitModeManual, true)
	require.NoError(t, err)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after submit")
	}
}
