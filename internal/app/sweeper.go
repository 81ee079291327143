package app

import (
	"context"
	"log"
	"time"

	"tournament-session-service/internal/domain"

	"github.com/go-co-op/gocron/v2"
)

// TournamentAdmin extends the read-only source with the status mutations the
// sweeper needs.
type TournamentAdmin interface {
	TournamentSource
	ListAll(ctx context.Context) ([]domain.Tournament, error)
	UpdateStatus(ctx context.Context, id string, status domain.TournamentStatus) error
}

// Sweeper drives the tournament lifecycle on a schedule: scheduled
// tournaments whose window opened become active, active tournaments past
// EndsAt become finished. Sessions pick the flip up on their next probe.
type Sweeper struct {
	store     TournamentAdmin
	now       func() time.Time
	scheduler gocron.Scheduler
}

func NewSweeper(store TournamentAdmin) *Sweeper {
	return NewSweeperWithClock(store, time.Now)
}

// NewSweeperWithClock allows deterministic time in tests.
func NewSweeperWithClock(store TournamentAdmin, now func() time.Time) *Sweeper {
	return &Sweeper{store: store, now: now}
}

// Start runs the sweep once a minute until Stop is called.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.Sweep(ctx); err != nil {
				log.Printf("[sweeper] sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}
	sched.Start()
	return nil
}

// Stop shuts the scheduler down.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}
}

// Sweep applies the status transitions due at the current time.
func (s *Sweeper) Sweep(ctx context.Context) error {
	tournaments, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	for _, t := range tournaments {
		switch t.Status {
		case domain.TournamentScheduled:
			if !now.Before(t.StartsAt) && now.Before(t.EndsAt) {
				if err := s.store.UpdateStatus(ctx, t.ID, domain.TournamentActive); err != nil {
					log.Printf("[sweeper] activate %s: %v", t.ID, err)
				} else {
					log.Printf("[sweeper] tournament %q is now active", t.Title)
				}
			}
		case domain.TournamentActive:
			if !now.Before(t.EndsAt) {
				if err := s.store.UpdateStatus(ctx, t.ID, domain.TournamentFinished); err != nil {
					log.Printf("[sweeper] finish %s: %v", t.ID, err)
				} else {
					log.Printf("[sweeper] tournament %q finished", t.Title)
				}
			}
		}
	}
	return nil
}
