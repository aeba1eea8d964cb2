package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type sessionKey struct {
	studentID int
	examID    uuid.UUID
}

// Registry keeps at most one live controller per (student, exam) pair, so
// every transport (HTTP, WebSocket, expiry timer) funnels into the same
// critical section.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[sessionKey]*Controller
}

// NewRegistry creates an empty Registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[sessionKey]*Controller),
	}
}

// Enter returns the live controller for the pair, starting or resuming a
// session if none is live. Finalized and abandoned controllers are evicted
// and replaced through a fresh Start, which re-checks availability and
// refuses already-submitted attempts.
//
// The registry lock is held across Start: session volumes are one per
// student at a time, and holding it is what makes "at most one controller
// per pair" true under concurrent entries.
func (r *Registry) Enter(ctx context.Context, studentID int, examID uuid.UUID) (*Controller, error) {
	key := sessionKey{studentID, examID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.sessions[key]; ok {
		switch c.State() {
		case StateActive, StateSubmitting:
			return c, nil
		default:
			delete(r.sessions, key)
		}
	}

	c, err := Start(ctx, r.deps, studentID, examID)
	if err != nil {
		return nil, err
	}
	r.sessions[key] = c
	return c, nil
}

// Get returns the live controller for the pair without starting one.
func (r *Registry) Get(studentID int, examID uuid.UUID) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.sessions[sessionKey{studentID, examID}]
	return c, ok
}

// Close abandons the live session for the pair, if any. Progress stays
// resumable.
func (r *Registry) Close(studentID int, examID uuid.UUID) {
	key := sessionKey{studentID, examID}

	r.mu.Lock()
	c, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if ok {
		c.Close()
	}
}

// CloseAll abandons every live session. Used on shutdown: each session gets
// a final snapshot, so a restart resumes attempts where they were.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	live := make([]*Controller, 0, len(r.sessions))
	for key, c := range r.sessions {
		live = append(live, c)
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	for _, c := range live {
		c.Close()
	}
}

// Release drops a finalized controller from the registry. Live controllers
// are left untouched.
func (r *Registry) Release(studentID int, examID uuid.UUID) {
	key := sessionKey{studentID, examID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.sessions[key]; ok && c.State() == StateSubmitted {
		delete(r.sessions, key)
	}
}

// RecoverStudent finalizes the student's abandoned sessions whose exam
// windows have closed. Called once when the student's overall session
// begins (login).
func (r *Registry) RecoverStudent(ctx context.Context, studentID int) int {
	return Recover(ctx, r.deps, studentID)
}
