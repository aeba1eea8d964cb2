package progress

import (
	"context"
	"sync"

	"github.com/examhall/examportal/internal/model"
	"github.com/google/uuid"
)

type memoryKey struct {
	studentID int
	examID    uuid.UUID
}

// MemoryStore is an in-process Store used in tests and single-node dev runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memoryKey]*model.SessionProgress
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey]*model.SessionProgress)}
}

func (s *MemoryStore) Get(_ context.Context, studentID int, examID uuid.UUID) (*model.SessionProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.entries[memoryKey{studentID, examID}]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, p *model.SessionProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[memoryKey{p.StudentID, p.ExamID}] = p.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, studentID int, examID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, memoryKey{studentID, examID})
	return nil
}

func (s *MemoryStore) ListByStudent(_ context.Context, studentID int) ([]*model.SessionProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.SessionProgress
	for k, p := range s.entries {
		if k.studentID == studentID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*model.SessionProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.SessionProgress, 0, len(s.entries))
	for _, p := range s.entries {
		out = append(out, p.Clone())
	}
	return out, nil
}
