package memory

import (
	"context"
	"sort"
	"sync"

	"tournament-session-service/internal/domain"
)

// TournamentStore is an in-memory tournament source, useful for tests and
// single-node deployments without Postgres.
type TournamentStore struct {
	mu          sync.RWMutex
	tournaments map[string]domain.Tournament
}

func NewTournamentStore(seed ...domain.Tournament) *TournamentStore {
	s := &TournamentStore{tournaments: make(map[string]domain.Tournament)}
	for _, t := range seed {
		s.tournaments[t.ID] = t
	}
	return s
}

// Put inserts or replaces a tournament.
func (s *TournamentStore) Put(t domain.Tournament) {
	s.mu.Lock()
	s.tournaments[t.ID] = t
	s.mu.Unlock()
}

func (s *TournamentStore) Get(_ context.Context, id string) (domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return domain.Tournament{}, domain.ErrTournamentNotFound
	}
	return t, nil
}

// ListByDiscipline returns matches in creation order, the order the
// directory resolves by.
func (s *TournamentStore) ListByDiscipline(_ context.Context, discipline domain.Discipline) ([]domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Tournament
	for _, t := range s.tournaments {
		if t.Discipline == discipline {
			out = append(out, t)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *TournamentStore) ListAll(_ context.Context) ([]domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		out = append(out, t)
	}
	sortByCreation(out)
	return out, nil
}

func (s *TournamentStore) UpdateStatus(_ context.Context, id string, status domain.TournamentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return domain.ErrTournamentNotFound
	}
	t.Status = status
	s.tournaments[id] = t
	return nil
}

func sortByCreation(ts []domain.Tournament) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
