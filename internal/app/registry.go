package app

import (
	"context"
	"time"

	"tournament-session-service/internal/domain"

	"github.com/google/uuid"
)

// ParticipantStore abstracts how participants are persisted. GetOrCreate must
// be idempotent on (tournamentID, userID) and ApplyScore must be an atomic
// increment, not a read-modify-write.
type ParticipantStore interface {
	GetOrCreate(ctx context.Context, p domain.Participant) (domain.Participant, bool, error)
	Get(ctx context.Context, tournamentID, userID string) (domain.Participant, error)
	CountActive(ctx context.Context, tournamentID string) (int, error)
	ApplyScore(ctx context.Context, participantID string, delta int, at time.Time) (domain.Participant, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]domain.Participant, error)
}

// Registry enrolls users into tournaments.
type Registry struct {
	tournaments  TournamentSource
	participants ParticipantStore
	now          func() time.Time
}

func NewRegistry(tournaments TournamentSource, participants ParticipantStore) *Registry {
	return NewRegistryWithClock(tournaments, participants, time.Now)
}

// NewRegistryWithClock allows deterministic time in tests.
func NewRegistryWithClock(tournaments TournamentSource, participants ParticipantStore, now func() time.Time) *Registry {
	return &Registry{tournaments: tournaments, participants: participants, now: now}
}

// Join enrolls the user, or returns the existing enrollment unchanged.
// Re-joining never resets score or solved count. Fails with
// ErrTournamentClosed outside the window and ErrTournamentFull when the cap
// is reached (withdrawn participants do not count against it).
func (r *Registry) Join(ctx context.Context, tournamentID, userID string, discipline domain.Discipline) (domain.Participant, error) {
	tournament, err := r.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return domain.Participant{}, err
	}
	if !tournament.Live(r.now()) {
		return domain.Participant{}, domain.ErrTournamentClosed
	}

	// An existing enrollment short-circuits the capacity check: re-join is
	// always allowed while the tournament runs.
	if existing, err := r.participants.Get(ctx, tournamentID, userID); err == nil {
		return existing, nil
	}

	if tournament.MaxParticipants > 0 {
		count, err := r.participants.CountActive(ctx, tournamentID)
		if err != nil {
			return domain.Participant{}, err
		}
		if count >= tournament.MaxParticipants {
			return domain.Participant{}, domain.ErrTournamentFull
		}
	}

	participant, _, err := r.participants.GetOrCreate(ctx, domain.Participant{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,
		Discipline:   discipline,
		Status:       domain.ParticipantConfirmed,
		JoinedAt:     r.now(),
	})
	return participant, err
}

// Get returns the participant row for (tournament, user).
func (r *Registry) Get(ctx context.Context, tournamentID, userID string) (domain.Participant, error) {
	return r.participants.Get(ctx, tournamentID, userID)
}
