// Package progress persists exam session snapshots so an attempt survives
// page reloads, disconnects, and process restarts.
package progress

import (
	"context"
	"errors"

	"github.com/examhall/examportal/internal/model"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no snapshot exists for a (student, exam) pair.
var ErrNotFound = errors.New("session progress not found")

// Store is the persistence port for session progress. Implementations must
// keep at most one snapshot per (student, exam) pair; Put overwrites.
type Store interface {
	// Get returns the snapshot for the pair, or ErrNotFound.
	Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.SessionProgress, error)
	// Put creates or overwrites the snapshot.
	Put(ctx context.Context, p *model.SessionProgress) error
	// Delete removes the snapshot. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, studentID int, examID uuid.UUID) error
	// ListByStudent returns every snapshot belonging to a student.
	ListByStudent(ctx context.Context, studentID int) ([]*model.SessionProgress, error)
	// List returns every snapshot in the store.
	List(ctx context.Context) ([]*model.SessionProgress, error)
}
