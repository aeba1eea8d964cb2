package service

import (
	"context"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/repository"
	"github.com/google/uuid"
)

// ResultsService serves finalized submission data for reports.
type ResultsService struct {
	subRepo *repository.SubmissionRepository
}

// NewResultsService creates a new ResultsService.
func NewResultsService(subRepo *repository.SubmissionRepository) *ResultsService {
	return &ResultsService{subRepo: subRepo}
}

// StudentResult returns one student's submission for one exam.
func (s *ResultsService) StudentResult(ctx context.Context, studentID int, examID uuid.UUID) (*model.Submission, error) {
	return s.subRepo.Get(ctx, studentID, examID)
}

// StudentHistory returns all of a student's submissions, newest first.
func (s *ResultsService) StudentHistory(ctx context.Context, studentID int) ([]model.Submission, error) {
	return s.subRepo.ListByStudent(ctx, studentID)
}

// ExamReport returns paginated per-student results for an exam.
func (s *ResultsService) ExamReport(ctx context.Context, examID uuid.UUID, page, perPage int) ([]repository.StudentResult, int64, error) {
	return s.subRepo.ListByExam(ctx, examID, page, perPage)
}
