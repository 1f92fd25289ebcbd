package impersonation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lodestar-app/lodestar/internal/identity"
)

// Store holds at most one active overlay per administrator session, keyed
// by session ID. Start and Stop are mutually exclusive per slot; reads
// observe the latest committed overlay, never a partially written one.
// In-flight guard evaluations pick up a change on their next resolution
// call.
type Store struct {
	now func() time.Time

	mu       sync.Mutex
	overlays map[string]Overlay
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		overlays: make(map[string]Overlay),
	}
}

// Start installs an overlay for the session. The authorization check runs
// against the caller's real snapshot, never a prior overlay.
func (s *Store) Start(sessionKey string, actor identity.Snapshot, target Target) (Overlay, error) {
	if actor.Status != identity.StatusReady || !actor.Role.Administrative() {
		return Overlay{}, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, active := s.overlays[sessionKey]; active {
		return Overlay{}, ErrAlreadyActive
	}
	overlay := Overlay{
		ID:             uuid.NewString(),
		ActingAdminID:  actor.SubjectID,
		Role:           target.Role,
		OrganizationID: target.OrganizationID,
		Plan:           target.Plan,
		StartedAt:      s.now(),
	}
	s.overlays[sessionKey] = overlay
	return overlay, nil
}

// Stop removes the session's overlay. Stopping with no active overlay is a
// no-op, not an error.
func (s *Store) Stop(sessionKey string) {
	s.mu.Lock()
	delete(s.overlays, sessionKey)
	s.mu.Unlock()
}

// Current returns the active overlay for the session, if any. One session's
// overlay is never visible to another.
func (s *Store) Current(sessionKey string) (Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	overlay, ok := s.overlays[sessionKey]
	return overlay, ok
}

// EndSession clears overlay state when the owning session terminates.
func (s *Store) EndSession(sessionKey string) {
	s.Stop(sessionKey)
}

// ActiveCount reports the number of live overlays across all sessions.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.overlays)
}
