package memory

import (
	"sync"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Create fails with domain.ErrSessionConflict while the channel still has a session.
func (s *SessionStore) Create(channelID string, params app.SessionParams) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[channelID]; ok {
		return nil, domain.ErrSessionConflict
	}
	session := app.NewSession(channelID, params)
	s.sessions[channelID] = session
	return session, nil
}

func (s *SessionStore) Get(channelID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[channelID]
	return session, ok
}

// End removes the channel's session if it is still sessionID and closes it.
// Ending an absent or replaced session is a no-op.
func (s *SessionStore) End(channelID, sessionID string) bool {
	s.mu.Lock()
	session, ok := s.sessions[channelID]
	if !ok || session.ID() != sessionID {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, channelID)
	s.mu.Unlock()
	session.Close()
	return true
}

// Len reports how many channels have a session.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
