package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examhall/examportal/internal/config"
	"github.com/examhall/examportal/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore stores progress snapshots as JSON values under
// "progress:{studentID}|{examID}" keys. Snapshots carry no TTL — they live
// until the attempt is finalized or the recovery sweep reaps them.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.SessionProgress, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ProgressKey(studentID, examID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	var p model.SessionProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Put(ctx context.Context, p *model.SessionProgress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	key := config.CacheKey.ProgressKey(p.StudentID, p.ExamID)
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("put progress: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, studentID int, examID uuid.UUID) error {
	if err := s.rdb.Del(ctx, config.CacheKey.ProgressKey(studentID, examID)).Err(); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByStudent(ctx context.Context, studentID int) ([]*model.SessionProgress, error) {
	return s.scan(ctx, config.CacheKey.ProgressStudentPattern(studentID))
}

func (s *RedisStore) List(ctx context.Context) ([]*model.SessionProgress, error) {
	return s.scan(ctx, config.CacheKey.ProgressAllPattern())
}

func (s *RedisStore) scan(ctx context.Context, pattern string) ([]*model.SessionProgress, error) {
	var out []*model.SessionProgress

	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue // Deleted between SCAN and GET.
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", iter.Val(), err)
		}

		var p model.SessionProgress
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Val(), err)
		}
		out = append(out, &p)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan progress: %w", err)
	}
	return out, nil
}
