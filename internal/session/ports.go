package session

import (
	"context"
	"time"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/progress"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Catalog supplies exam definitions. Implementations return ErrExamNotFound
// when the identifier does not resolve.
type Catalog interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
}

// SubmissionStore durably records finalized attempts. Create returns
// ErrDuplicateSubmission when a submission already exists for the
// (exam, student) pair; Get returns ErrSubmissionNotFound on a miss.
type SubmissionStore interface {
	Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.Submission, error)
	Create(ctx context.Context, sub *model.Submission) error
}

// Deps bundles the collaborators a session controller needs.
type Deps struct {
	Catalog     Catalog
	Progress    progress.Store
	Submissions SubmissionStore
	Log         zerolog.Logger

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	// SaveInterval overrides the background snapshot cadence; zero means 10s.
	SaveInterval time.Duration
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) saveInterval() time.Duration {
	if d.SaveInterval > 0 {
		return d.SaveInterval
	}
	return 10 * time.Second
}
