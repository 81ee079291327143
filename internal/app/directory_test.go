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

func TestResolveActiveOnlyInsideWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := memory.NewTournamentStore(
		domain.Tournament{
			ID: "t-finished", Discipline: domain.DisciplineMath, Status: domain.TournamentActive,
			StartsAt: now.Add(-3 * time.Hour), EndsAt: now.Add(-time.Hour), CreatedAt: now.Add(-4 * time.Hour),
		},
		domain.Tournament{
			ID: "t-live", Discipline: domain.DisciplineMath, Status: domain.TournamentActive,
			StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), CreatedAt: now.Add(-2 * time.Hour),
		},
		domain.Tournament{
			ID: "t-draft", Discipline: domain.DisciplineMath, Status: domain.TournamentDraft,
			StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), CreatedAt: now.Add(-3 * time.Hour),
		},
	)
	directory := app.NewDirectoryWithClock(store, app.ResolveFirstCreated, clock)

	tournament, err := directory.ResolveActive(ctx, domain.DisciplineMath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if tournament.ID != "t-live" {
		t.Fatalf("expected t-live, got %s", tournament.ID)
	}
}

func TestResolveActiveNoneMatching(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewTournamentStore(domain.Tournament{
		ID: "t1", Discipline: domain.DisciplineEnglish, Status: domain.TournamentActive,
		StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour), CreatedAt: now,
	})
	directory := app.NewDirectoryWithClock(store, app.ResolveFirstCreated, func() time.Time { return now })

	_, err := directory.ResolveActive(ctx, domain.DisciplineEnglish)
	if !errors.Is(err, domain.ErrTournamentUnavailable) {
		t.Fatalf("expected ErrTournamentUnavailable, got %v", err)
	}
}

func TestResolveSoonestEndingStrategy(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewTournamentStore(
		domain.Tournament{
			ID: "t-long", Discipline: domain.DisciplineMath, Status: domain.TournamentActive,
			StartsAt: now.Add(-time.Hour), EndsAt: now.Add(5 * time.Hour), CreatedAt: now.Add(-3 * time.Hour),
		},
		domain.Tournament{
			ID: "t-short", Discipline: domain.DisciplineMath, Status: domain.TournamentActive,
			StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), CreatedAt: now.Add(-2 * time.Hour),
		},
	)
	directory := app.NewDirectoryWithClock(store, app.ResolveSoonestEnding, func() time.Time { return now })

	tournament, err := directory.ResolveActive(ctx, domain.DisciplineMath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if tournament.ID != "t-short" {
		t.Fatalf("expected soonest-ending t-short, got %s", tournament.ID)
	}
}
