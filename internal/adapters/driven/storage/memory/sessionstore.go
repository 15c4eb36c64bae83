package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore keeps conversation history in memory with no eviction.
// Each session has its own lock so unrelated sessions never contend.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

// History returns a copy of the session's turns. Unknown ids yield an empty slice.
func (s *SessionStore) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	sess := s.lookup(sessionID, false)
	if sess == nil {
		return []domain.Turn{}, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]domain.Turn{}, sess.turns...), nil
}

// Append adds turns to the session in one step.
func (s *SessionStore) Append(_ context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	sess := s.lookup(sessionID, true)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, turns...)
	return nil
}

// Len returns the number of known sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) lookup(id string, create bool) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok && create {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}
