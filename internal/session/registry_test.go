package session

import (
	"context"
	"testing"

	"github.com/examhall/examportal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEnterReturnsSameLiveController(t *testing.T) {
	env := newTestEnv(t, 30)
	r := NewRegistry(env.deps)
	ctx := context.Background()

	c1, err := r.Enter(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)
	t.Cleanup(c1.Close)

	c2, err := r.Enter(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestRegistryEnterAfterSubmitRefuses(t *testing.T) {
	env := newTestEnv(t, 30)
	r := NewRegistry(env.deps)
	ctx := context.Background()

	c, err := r.Enter(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)

	_, err = c.Submit(ctx, model.SubmitModeManual, true)
	require.NoError(t, err)

	// The finalized controller is evicted and Start refuses a second attempt.
	_, err = r.Enter(ctx, testStudentID, env.exam.ID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	_, ok := r.Get(testStudentID, env.exam.ID)
	assert.False(t, ok)
}

func TestRegistryCloseAbandonsAndAllowsReentry(t *testing.T) {
	env := newTestEnv(t, 30)
	r := NewRegistry(env.deps)
	ctx := context.Background()
	q0 := env.exam.Questions[0].ID

	c1, err := r.Enter(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)
	require.NoError(t, c1.SelectAnswer(ctx, q0, 1))

	r.Close(testStudentID, env.exam.ID)
	assert.Equal(t, StateClosed, c1.State())

	// Re-entry resumes from the abandoned session's snapshot.
	c2, err := r.Enter(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)
	t.Cleanup(c2.Close)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, 1, c2.View().Answers[q0])
}

func TestRegistryCloseAllFlushesEverySession(t *testing.T) {
	env := newTestEnv(t, 30)
	r := NewRegistry(env.deps)
	ctx := context.Background()

	c, err := r.Enter(ctx, testStudentID, env.exam.ID)
	require.NoError(t, err)

	r.CloseAll()
	assert.Equal(t, StateClosed, c.State())

	_, ok := r.Get(testStudentID, env.exam.ID)
	assert.False(t, ok)
}
