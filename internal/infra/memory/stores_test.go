package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tournament-session-service/internal/domain"
)

func TestParticipantGetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()

	first, created, err := store.GetOrCreate(ctx, domain.Participant{
		ID: "p1", TournamentID: "t1", UserID: "u1",
		Discipline: domain.DisciplineMath, Status: domain.ParticipantConfirmed,
	})
	if err != nil || !created {
		t.Fatalf("first join: created=%v err=%v", created, err)
	}
	if _, err := store.ApplyScore(ctx, first.ID, 10, time.Now()); err != nil {
		t.Fatalf("apply score: %v", err)
	}

	again, created, err := store.GetOrCreate(ctx, domain.Participant{
		ID: "p2", TournamentID: "t1", UserID: "u1",
		Discipline: domain.DisciplineMath, Status: domain.ParticipantConfirmed,
	})
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if created {
		t.Fatal("second join created a new row")
	}
	if again.ID != "p1" || again.Score != 10 {
		t.Fatalf("second join lost state: %+v", again)
	}
}

func TestApplyScoreNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()
	p, _, err := store.GetOrCreate(ctx, domain.Participant{ID: "p1", TournamentID: "t1", UserID: "u1"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	got, err := store.ApplyScore(ctx, p.ID, -5, time.Now())
	if err != nil {
		t.Fatalf("apply score: %v", err)
	}
	if got.Score != 0 || got.SolvedCount != 0 {
		t.Fatalf("negative delta mishandled: %+v", got)
	}
}

func TestApplyScoreConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()
	p, _, err := store.GetOrCreate(ctx, domain.Participant{ID: "p1", TournamentID: "t1", UserID: "u1"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ApplyScore(ctx, p.ID, 2, time.Now()); err != nil {
				t.Errorf("apply score: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "t1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 100 || got.SolvedCount != 50 {
		t.Fatalf("lost increments: %+v", got)
	}
}

func TestCountActiveExcludesWithdrawn(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()
	for i, st := range []domain.ParticipantStatus{
		domain.ParticipantConfirmed, domain.ParticipantConfirmed, domain.ParticipantWithdrawn,
	} {
		_, _, err := store.GetOrCreate(ctx, domain.Participant{
			ID: string(rune('a' + i)), TournamentID: "t1", UserID: string(rune('x' + i)), Status: st,
		})
		if err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	count, err := store.CountActive(ctx, "t1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestAttemptRecordRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	first := domain.Attempt{ID: "a1", ParticipantID: "p1", QuestionIndex: 3, Verdict: "correct", PointsAwarded: 5}
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("first record: %v", err)
	}
	err := store.Record(ctx, domain.Attempt{ID: "a2", ParticipantID: "p1", QuestionIndex: 3, Verdict: "incorrect"})
	if !errors.Is(err, domain.ErrQuestionAlreadyAnswered) {
		t.Fatalf("expected ErrQuestionAlreadyAnswered, got %v", err)
	}

	// The original write survives.
	attempts, err := store.ListByParticipant(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 1 || attempts[0].ID != "a1" {
		t.Fatalf("duplicate overwrote the first attempt: %+v", attempts)
	}
}

func TestAttemptConcurrentDuplicatesAdmitOne(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Record(ctx, domain.Attempt{ID: string(rune('a' + i)), ParticipantID: "p1", QuestionIndex: 0})
			if err == nil {
				accepted.Add(1)
			} else if !errors.Is(err, domain.ErrQuestionAlreadyAnswered) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if accepted.Load() != 1 {
		t.Fatalf("accepted %d attempts, want 1", accepted.Load())
	}
}

type countingLoader struct {
	calls atomic.Int32
	set   domain.QuestionSet
}

func (l *countingLoader) LoadQuestions(context.Context, string, domain.Discipline) (domain.QuestionSet, error) {
	l.calls.Add(1)
	return l.set, nil
}

func TestQuestionRepositoryCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{set: domain.QuestionSet{
		TournamentID: "t1", Discipline: domain.DisciplineMath,
		Questions: []domain.Question{{Index: 0, Prompt: "q"}},
	}}
	repo := NewQuestionRepository(loader, time.Minute)

	for i := 0; i < 5; i++ {
		set, err := repo.GetQuestions(ctx, "t1", domain.DisciplineMath)
		if err != nil {
			t.Fatalf("get questions: %v", err)
		}
		if len(set.Questions) != 1 {
			t.Fatalf("unexpected set: %+v", set)
		}
	}
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestQuestionRepositoryCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{set: domain.QuestionSet{TournamentID: "t1", Discipline: domain.DisciplineMath}}
	repo := NewQuestionRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuestions(ctx, "t1", domain.DisciplineMath); err != nil {
				t.Errorf("get questions: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestTournamentStoreListByDiscipline(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewTournamentStore(
		domain.Tournament{ID: "m1", Discipline: domain.DisciplineMath, CreatedAt: base.Add(time.Minute)},
		domain.Tournament{ID: "m2", Discipline: domain.DisciplineMath, CreatedAt: base},
		domain.Tournament{ID: "e1", Discipline: domain.DisciplineEnglish, CreatedAt: base},
	)

	got, err := store.ListByDiscipline(ctx, domain.DisciplineMath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m2" || got[1].ID != "m1" {
		t.Fatalf("expected creation order m2,m1; got %+v", got)
	}
}
