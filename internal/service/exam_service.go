package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examhall/examportal/internal/config"
	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/repository"
	"github.com/examhall/examportal/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// payloadTTL bounds how long a cached exam definition can outlive an admin
// edit on another node. Writes through this service invalidate immediately.
const payloadTTL = 10 * time.Minute

// ExamService is the Exam Catalog Service: it serves exam definitions
// (questions included) through a Redis payload cache with PostgreSQL as the
// source of truth, and owns admin-side exam CRUD.
type ExamService struct {
	examRepo *repository.ExamRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

var _ session.Catalog = (*ExamService)(nil)

// GetExam returns the full exam definition, preferring the Redis payload
// cache and self-healing it on a miss.
func (s *ExamService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamPayloadKey(examID)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var exam model.Exam
		if jerr := json.Unmarshal([]byte(raw), &exam); jerr == nil {
			return &exam, nil
		}
		// Corrupt cache entry: drop it and fall through to the database.
		s.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Payload cache read failed, falling back to database")
	}

	exam, err := s.examRepo.GetByID(ctx, examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	s.cachePayload(ctx, exam)
	return exam, nil
}

// ListExams returns all exams without question lists, with status derived at
// read time. Used for the student lobby and the admin overview.
func (s *ExamService) ListExams(ctx context.Context) ([]model.Exam, error) {
	return s.examRepo.List(ctx)
}

// CreateExam publishes a new exam with its questions.
func (s *ExamService) CreateExam(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Questions:       buildQuestions(uuid.Nil, req.Questions),
	}
	for i := range exam.Questions {
		exam.Questions[i].ExamID = exam.ID
	}

	if err := validateQuestions(exam.Questions); err != nil {
		return nil, err
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.cachePayload(ctx, exam)
	return exam, nil
}

// UpdateExam applies a partial update to exam metadata. The schedule and
// duration are frozen once the window has opened.
func (s *ExamService) UpdateExam(ctx context.Context, examID uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	now := time.Now()
	schedule := req.StartTime != nil || req.EndTime != nil || req.DurationMinutes > 0
	if schedule && exam.StatusAt(now) != model.ExamStatusUpcoming {
		return nil, errors.New("schedule is frozen once the exam window has opened")
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.DurationMinutes > 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if !exam.EndTime.After(exam.StartTime) {
		return nil, errors.New("end time must be after start time")
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.invalidate(ctx, examID)
	return exam, nil
}

// DeleteExam removes an exam and its questions.
func (s *ExamService) DeleteExam(ctx context.Context, examID uuid.UUID) error {
	err := s.examRepo.Delete(ctx, examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.ErrExamNotFound
	}
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}

	s.invalidate(ctx, examID)
	return nil
}

// ReplaceQuestions swaps the exam's question set. Rejected once the exam
// window has opened — questions are immutable from then on.
func (s *ExamService) ReplaceQuestions(ctx context.Context, examID uuid.UUID, req *model.ReplaceQuestionsRequest) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if exam.StatusAt(time.Now()) != model.ExamStatusUpcoming {
		return nil, errors.New("questions are immutable once the exam window has opened")
	}

	questions := buildQuestions(examID, req.Questions)
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}
	if err := s.examRepo.ReplaceQuestions(ctx, examID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	s.invalidate(ctx, examID)
	return s.GetExam(ctx, examID)
}

// PrewarmCaches loads every exam whose window has not yet closed into Redis.
// Run at boot so the first student entries never race a cold cache.
func (s *ExamService) PrewarmCaches(ctx context.Context) error {
	exams, err := s.examRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}

	now := time.Now()
	warmed := 0
	for i := range exams {
		if exams[i].StatusAt(now) == model.ExamStatusCompleted {
			continue
		}
		full, err := s.examRepo.GetByID(ctx, exams[i].ID)
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", exams[i].ID.String()).Msg("Prewarm skip")
			continue
		}
		s.cachePayload(ctx, full)
		warmed++
	}

	s.log.Info().Int("count", warmed).Msg("Exam payload caches prewarmed")
	return nil
}

func (s *ExamService) cachePayload(ctx context.Context, exam *model.Exam) {
	raw, err := json.Marshal(exam)
	if err != nil {
		return
	}
	key := config.CacheKey.ExamPayloadKey(exam.ID)
	if err := s.rdb.Set(ctx, key, raw, payloadTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Payload cache write failed")
	}
}

func (s *ExamService) invalidate(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPayloadKey(examID)).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Payload cache invalidation failed")
	}
}

func buildQuestions(examID uuid.UUID, reqs []model.CreateQuestionRequest) []model.Question {
	questions := make([]model.Question, len(reqs))
	for i, q := range reqs {
		questions[i] = model.Question{
			ID:            uuid.New(),
			ExamID:        examID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Marks:         q.Marks,
			OrderNum:      i,
		}
	}
	return questions
}

func validateQuestions(questions []model.Question) error {
	for i := range questions {
		q := &questions[i]
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("question %d: correct_option %d out of range", i, q.CorrectOption)
		}
	}
	return nil
}
