package repository

import (
	"context"
	"fmt"

	"github.com/examhall/examportal/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam and question data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam with its ordered question list.
// Returns pgx.ErrNoRows when the exam does not exist.
func (r *ExamRepository) GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, duration_minutes, start_time, end_time, created_at, updated_at
		 FROM exams WHERE id = $1`, examID,
	).Scan(&e.ID, &e.Title, &e.Description, &e.DurationMinutes, &e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	questions, err := r.questionsByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	e.Questions = questions
	return e, nil
}

// List retrieves all exams without their question lists, newest window first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, duration_minutes, start_time, end_time, created_at, updated_at
		 FROM exams ORDER BY start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.DurationMinutes, &e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts an exam together with its questions in one transaction.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (id, title, description, duration_minutes, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.Description, e.DurationMinutes, e.StartTime, e.EndTime,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	if err := insertQuestions(ctx, tx, e.ID, e.Questions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update modifies exam metadata. Question edits go through ReplaceQuestions.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, duration_minutes = $3, start_time = $4, end_time = $5, updated_at = NOW()
		 WHERE id = $6`,
		e.Title, e.Description, e.DurationMinutes, e.StartTime, e.EndTime, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes an exam and, through cascading constraints, its questions.
func (r *ExamRepository) Delete(ctx context.Context, examID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, examID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReplaceQuestions swaps the full question set of an exam in one transaction.
func (r *ExamRepository) ReplaceQuestions(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if err := insertQuestions(ctx, tx, examID, questions); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE exams SET updated_at = NOW() WHERE id = $1`, examID); err != nil {
		return fmt.Errorf("touch exam: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *ExamRepository) questionsByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, text, options, correct_option, marks, order_num
		 FROM questions WHERE exam_id = $1 ORDER BY order_num ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Options, &q.CorrectOption, &q.Marks, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func insertQuestions(ctx context.Context, tx pgx.Tx, examID uuid.UUID, questions []model.Question) error {
	for i := range questions {
		q := &questions[i]
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (id, exam_id, text, options, correct_option, marks, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			q.ID, examID, q.Text, q.Options, q.CorrectOption, q.Marks, q.OrderNum,
		); err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}
