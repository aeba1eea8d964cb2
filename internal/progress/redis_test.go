package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/examhall/examportal/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisStore(rdb)
}

func sampleProgress(studentID int) *model.SessionProgress {
	examID := uuid.New()
	return &model.SessionProgress{
		StudentID:        studentID,
		ExamID:           examID,
		CurrentQuestion:  3,
		Answers:          model.AnswerMap{uuid.New(): 1, uuid.New(): model.Unanswered},
		RemainingSeconds: 512,
		StartedAt:        time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC),
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	p := sampleProgress(7)

	require.NoError(t, store.Put(ctx, p))

	got, err := store.Get(ctx, p.StudentID, p.ExamID)
	require.NoError(t, err)
	assert.Equal(t, p.CurrentQuestion, got.CurrentQuestion)
	assert.Equal(t, p.RemainingSeconds, got.RemainingSeconds)
	assert.Equal(t, p.Answers, got.Answers)
	assert.True(t, p.StartedAt.Equal(got.StartedAt))
}

func TestRedisStoreGetMiss(t *testing.T) {
	store := newRedisStore(t)

	_, err := store.Get(context.Background(), 1, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreDeleteIsIdempotent(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	p := sampleProgress(7)

	require.NoError(t, store.Put(ctx, p))
	require.NoError(t, store.Delete(ctx, p.StudentID, p.ExamID))

	_, err := store.Get(ctx, p.StudentID, p.ExamID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing snapshot is not an error.
	assert.NoError(t, store.Delete(ctx, p.StudentID, p.ExamID))
}

func TestRedisStoreListByStudent(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleProgress(1)))
	require.NoError(t, store.Put(ctx, sampleProgress(1)))
	require.NoError(t, store.Put(ctx, sampleProgress(2)))

	mine, err := store.ListByStudent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, p := range mine {
		assert.Equal(t, 1, p.StudentID)
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
