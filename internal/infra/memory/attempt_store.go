package memory

import (
	"context"
	"fmt"
	"sync"

	"tournament-session-service/internal/domain"
)

// AttemptStore is an append-only in-memory attempt trail. Record is a
// check-and-insert: the first write for (participant, question) wins and
// duplicates are rejected, never overwritten.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt // participantID:questionIndex
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.Attempt)}
}

func (s *AttemptStore) Record(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(attempt.ParticipantID, attempt.QuestionIndex)
	if _, exists := s.attempts[key]; exists {
		return domain.ErrQuestionAlreadyAnswered
	}
	s.attempts[key] = attempt
	return nil
}

func (s *AttemptStore) ListByParticipant(_ context.Context, participantID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Attempt
	for _, a := range s.attempts {
		if a.ParticipantID == participantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func attemptKey(participantID string, questionIndex int) string {
	return fmt.Sprintf("%s:%d", participantID, questionIndex)
}
