package redis

import (
	"context"
	"sync"
	"time"

	"tournament-session-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware SessionRepository.
// Notes:
//   - Sessions stay in a local map so the in-process tick/broadcast loop keeps
//     working; Redis marks liveness so operators can see sessions across nodes.
//   - For true distribution you'd pair this with a pub/sub projector that fans
//     out session frames.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(key string, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session, false
	}
	session := create()
	s.sessions[key] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(key), "1", s.ttl).Err()
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
	defer s.mu.Unlock()
	delete(s.sessions, key)
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

func (s *SessionStore) key(sessionKey string) string {
	return "tournament:session:" + sessionKey
}
