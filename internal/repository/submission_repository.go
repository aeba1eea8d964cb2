package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentResult combines student identity with their submission, for admin
// reports.
type StudentResult struct {
	StudentID   int       `json:"student_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Score       int       `json:"score"`
	TotalMarks  int       `json:"total_marks"`
	Percentage  int       `json:"percentage"`
	Mode        string    `json:"mode"`
	StartedAt   time.Time `json:"started_at"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionRepository is the PostgreSQL-backed Submission Store. The
// at-most-once-submission invariant is enforced by the unique
// (exam_id, student_id) constraint; a conflicting insert surfaces as
// session.ErrDuplicateSubmission.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

var _ session.SubmissionStore = (*SubmissionRepository)(nil)

// Get retrieves the submission for a (student, exam) pair.
func (r *SubmissionRepository) Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	var rawAnswers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, answers, started_at, submitted_at, score, total_marks, percentage, mode
		 FROM submissions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &rawAnswers, &s.StartedAt, &s.SubmittedAt, &s.Score, &s.TotalMarks, &s.Percentage, &s.Mode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	if err := json.Unmarshal(rawAnswers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return s, nil
}

// Create records a finalized submission exactly once.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	rawAnswers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO submissions (id, exam_id, student_id, answers, started_at, submitted_at, score, total_marks, percentage, mode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		s.ID, s.ExamID, s.StudentID, rawAnswers, s.StartedAt, s.SubmittedAt, s.Score, s.TotalMarks, s.Percentage, s.Mode)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrDuplicateSubmission
	}
	return nil
}

// ListByStudent retrieves all of a student's submissions, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, answers, started_at, submitted_at, score, total_marks, percentage, mode
		 FROM submissions
		 WHERE student_id = $1
		 ORDER BY submitted_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		var rawAnswers []byte
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &rawAnswers, &s.StartedAt, &s.SubmittedAt, &s.Score, &s.TotalMarks, &s.Percentage, &s.Mode); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawAnswers, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListByExam retrieves paginated per-student results for one exam.
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]StudentResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE exam_id = $1`, examID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.student_id, st.name, st.email, s.score, s.total_marks, s.percentage, s.mode, s.started_at, s.submitted_at
		 FROM submissions s
		 JOIN students st ON s.student_id = st.id
		 WHERE s.exam_id = $1
		 ORDER BY s.score DESC, st.name ASC
		 LIMIT $2 OFFSET $3`, examID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []StudentResult
	for rows.Next() {
		var res StudentResult
		if err := rows.Scan(&res.StudentID, &res.Name, &res.Email, &res.Score, &res.TotalMarks, &res.Percentage, &res.Mode, &res.StartedAt, &res.SubmittedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
