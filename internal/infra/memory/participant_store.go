package memory

import (
	"context"
	"sync"
	"time"

	"tournament-session-service/internal/domain"
)

// ParticipantStore keeps participants in a mutex-guarded map. All score
// writes go through ApplyScore, which increments under the lock so
// concurrent grades never race a read-modify-write.
type ParticipantStore struct {
	mu    sync.RWMutex
	byKey map[string]*domain.Participant // tournamentID:userID
	byID  map[string]*domain.Participant
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{
		byKey: make(map[string]*domain.Participant),
		byID:  make(map[string]*domain.Participant),
	}
}

// GetOrCreate returns the existing row unchanged when (tournament, user)
// already joined; the second return reports whether a row was created.
func (s *ParticipantStore) GetOrCreate(_ context.Context, p domain.Participant) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := participantKey(p.TournamentID, p.UserID)
	if existing, ok := s.byKey[key]; ok {
		return *existing, false, nil
	}
	stored := p
	s.byKey[key] = &stored
	s.byID[p.ID] = &stored
	return stored, true, nil
}

func (s *ParticipantStore) Get(_ context.Context, tournamentID, userID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byKey[participantKey(tournamentID, userID)]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *p, nil
}

// CountActive counts non-withdrawn participants against the cap.
func (s *ParticipantStore) CountActive(_ context.Context, tournamentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.byKey {
		if p.TournamentID == tournamentID && p.Status != domain.ParticipantWithdrawn {
			count++
		}
	}
	return count, nil
}

// ApplyScore increments score under the store lock; SolvedCount and
// LastScoredAt move only on positive deltas.
func (s *ParticipantStore) ApplyScore(_ context.Context, participantID string, delta int, at time.Time) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[participantID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	p.Score += delta
	if p.Score < 0 {
		p.Score = 0
	}
	if delta > 0 {
		p.SolvedCount++
		p.LastScoredAt = at
	}
	return *p, nil
}

func (s *ParticipantStore) ListByTournament(_ context.Context, tournamentID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participant
	for _, p := range s.byKey {
		if p.TournamentID == tournamentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func participantKey(tournamentID, userID string) string {
	return tournamentID + ":" + userID
}
