package app

import (
	"context"
	"time"

	"tournament-session-service/internal/domain"
)

// TournamentSource abstracts where tournaments come from (in-memory, Postgres).
type TournamentSource interface {
	ListByDiscipline(ctx context.Context, discipline domain.Discipline) ([]domain.Tournament, error)
	Get(ctx context.Context, id string) (domain.Tournament, error)
}

// ResolveStrategy selects which of several matching tournaments wins.
type ResolveStrategy string

const (
	// ResolveFirstCreated keeps the source behavior: first match in creation order.
	ResolveFirstCreated ResolveStrategy = "first-created"
	// ResolveSoonestEnding prefers the tournament whose window closes next.
	ResolveSoonestEnding ResolveStrategy = "soonest-ending"
)

// Directory resolves the currently active tournament for a discipline.
// Purely a read-time filter with a clock dependency.
type Directory struct {
	source   TournamentSource
	strategy ResolveStrategy
	now      func() time.Time
}

func NewDirectory(source TournamentSource, strategy ResolveStrategy) *Directory {
	return NewDirectoryWithClock(source, strategy, time.Now)
}

// NewDirectoryWithClock allows deterministic time in tests.
func NewDirectoryWithClock(source TournamentSource, strategy ResolveStrategy, now func() time.Time) *Directory {
	if strategy == "" {
		strategy = ResolveFirstCreated
	}
	return &Directory{source: source, strategy: strategy, now: now}
}

// ResolveActive returns the live tournament for the discipline, or
// ErrTournamentUnavailable when none is inside its window right now.
func (d *Directory) ResolveActive(ctx context.Context, discipline domain.Discipline) (domain.Tournament, error) {
	tournaments, err := d.source.ListByDiscipline(ctx, discipline)
	if err != nil {
		return domain.Tournament{}, err
	}

	now := d.now()
	var found *domain.Tournament
	for i := range tournaments {
		t := tournaments[i]
		if !t.Live(now) {
			continue
		}
		if found == nil {
			found = &t
			if d.strategy == ResolveFirstCreated {
				break
			}
			continue
		}
		if d.strategy == ResolveSoonestEnding && t.EndsAt.Before(found.EndsAt) {
			found = &t
		}
	}
	if found == nil {
		return domain.Tournament{}, domain.ErrTournamentUnavailable
	}
	// Re-check the window at return time; a match that lapsed during
	// resolution is reported as unavailable, not returned stale.
	if !d.now().Before(found.EndsAt) {
		return domain.Tournament{}, domain.ErrTournamentUnavailable
	}
	return *found, nil
}

// Get looks a tournament up by ID.
func (d *Directory) Get(ctx context.Context, id string) (domain.Tournament, error) {
	return d.source.Get(ctx, id)
}

// ListActive returns every live tournament for the discipline, newest window last.
func (d *Directory) ListActive(ctx context.Context, discipline domain.Discipline) ([]domain.Tournament, error) {
	tournaments, err := d.source.ListByDiscipline(ctx, discipline)
	if err != nil {
		return nil, err
	}
	now := d.now()
	live := make([]domain.Tournament, 0, len(tournaments))
	for _, t := range tournaments {
		if t.Live(now) {
			live = append(live, t)
		}
	}
	return live, nil
}
