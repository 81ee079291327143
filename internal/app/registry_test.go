package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tournament-session-service/internal/app"
	"tournament-session-service/internal/domain"
	"tournament-session-service/internal/infra/memory"
)

func liveTournament(now time.Time, maxParticipants int) domain.Tournament {
	return domain.Tournament{
		ID:              "t1",
		Title:           "Math Open",
		Discipline:      domain.DisciplineMath,
		Status:          domain.TournamentActive,
		StartsAt:        now.Add(-time.Hour),
		EndsAt:          now.Add(time.Hour),
		MaxParticipants: maxParticipants,
		CreatedAt:       now.Add(-2 * time.Hour),
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tournaments := memory.NewTournamentStore(liveTournament(now, 0))
	participants := memory.NewParticipantStore()
	registry := app.NewRegistryWithClock(tournaments, participants, func() time.Time { return now })

	first, err := registry.Join(ctx, "t1", "u1", domain.DisciplineMath)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Simulate scoring between joins; re-join must not reset it.
	if _, err := participants.ApplyScore(ctx, first.ID, 5, now); err != nil {
		t.Fatalf("apply score: %v", err)
	}

	second, err := registry.Join(ctx, "t1", "u1", domain.DisciplineMath)
	if err != nil {
		t.Fatalf("re-join failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same participant, got %s vs %s", second.ID, first.ID)
	}
	if second.Score != 5 {
		t.Fatalf("re-join reset score: got %d, want 5", second.Score)
	}
}

func TestJoinRejectsClosedTournament(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	closed := liveTournament(now, 0)
	closed.Status = domain.TournamentFinished
	registry := app.NewRegistryWithClock(memory.NewTournamentStore(closed), memory.NewParticipantStore(), func() time.Time { return now })

	_, err := registry.Join(ctx, "t1", "u1", domain.DisciplineMath)
	if !errors.Is(err, domain.ErrTournamentClosed) {
		t.Fatalf("expected ErrTournamentClosed, got %v", err)
	}
}

func TestJoinEnforcesCap(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	registry := app.NewRegistryWithClock(memory.NewTournamentStore(liveTournament(now, 1)), memory.NewParticipantStore(), func() time.Time { return now })

	if _, err := registry.Join(ctx, "t1", "u1", domain.DisciplineMath); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if _, err := registry.Join(ctx, "t1", "u2", domain.DisciplineMath); !errors.Is(err, domain.ErrTournamentFull) {
		t.Fatalf("expected ErrTournamentFull, got %v", err)
	}
	// The enrolled user can still re-join at cap.
	if _, err := registry.Join(ctx, "t1", "u1", domain.DisciplineMath); err != nil {
		t.Fatalf("re-join at cap failed: %v", err)
	}
}
