package memory

import (
	"sync"

	"tournament-session-service/internal/app"
)

// SessionStore tracks live sessions in-process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*app.Session)}
}

func (s *SessionStore) GetOrCreate(key string, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session, false
	}
	session := create()
	s.sessions[key] = session
	return session, true
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
}
