package app_test

import (
	"context"
	"testing"
	"time"

	"tournament-session-service/internal/app"
	"tournament-session-service/internal/domain"
	"tournament-session-service/internal/infra/memory"
)

func seedParticipants(t *testing.T, store *memory.ParticipantStore, users ...string) map[string]domain.Participant {
	t.Helper()
	out := make(map[string]domain.Participant, len(users))
	for _, u := range users {
		p, _, err := store.GetOrCreate(context.Background(), domain.Participant{
			ID: "p-" + u, TournamentID: "t1", UserID: u,
			Discipline: domain.DisciplineMath, Status: domain.ParticipantConfirmed,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", u, err)
		}
		out[u] = p
	}
	return out
}

func TestApplyScoreIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewParticipantStore()
	ps := seedParticipants(t, store, "a", "b")
	agg := app.NewAggregator(store, nil)

	if _, err := agg.ApplyScore(ctx, ps["a"].ID, 5); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := agg.ApplyScore(ctx, ps["a"].ID, 10); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := agg.ApplyScore(ctx, ps["b"].ID, 10); err != nil {
		t.Fatalf("apply: %v", err)
	}
	final, err := agg.ApplyScore(ctx, ps["b"].ID, 5)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	a, _ := store.Get(ctx, "t1", "a")
	if a.Score != 15 || final.Score != 15 {
		t.Fatalf("expected both at 15, got a=%d b=%d", a.Score, final.Score)
	}
	if a.SolvedCount != 2 || final.SolvedCount != 2 {
		t.Fatalf("expected solvedCount 2, got a=%d b=%d", a.SolvedCount, final.SolvedCount)
	}
}

func TestRecomputeOrdersByScoreDescending(t *testing.T) {
	ctx := context.Background()
	store := memory.NewParticipantStore()
	ps := seedParticipants(t, store, "low", "high", "mid")
	agg := app.NewAggregator(store, nil)

	_, _ = agg.ApplyScore(ctx, ps["low"].ID, 3)
	_, _ = agg.ApplyScore(ctx, ps["high"].ID, 20)
	_, _ = agg.ApplyScore(ctx, ps["mid"].ID, 10)

	entries, err := agg.Recompute(ctx, "t1", app.RankingByScore)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Score < entries[i].Score {
			t.Fatalf("not sorted descending at %d: %+v", i, entries)
		}
		if entries[i-1].Score > entries[i].Score && entries[i-1].Rank >= entries[i].Rank {
			t.Fatalf("higher score must rank strictly better: %+v", entries)
		}
	}
	if entries[0].UserID != "high" || entries[0].Rank != 1 {
		t.Fatalf("expected high at rank 1, got %+v", entries[0])
	}
}

func TestTieBreakPrefersEarlierScorer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewParticipantStore()
	ps := seedParticipants(t, store, "fast", "slow")

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := base
	agg := app.NewAggregatorWithClock(store, nil, func() time.Time { return current })

	_, _ = agg.ApplyScore(ctx, ps["fast"].ID, 10)
	current = base.Add(time.Minute)
	_, _ = agg.ApplyScore(ctx, ps["slow"].ID, 10)

	tieBroken, err := agg.Recompute(ctx, "t1", app.RankingTieBroken)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if tieBroken[0].UserID != "fast" || tieBroken[0].Rank != 1 || tieBroken[1].Rank != 2 {
		t.Fatalf("expected fast first with distinct ranks, got %+v", tieBroken)
	}

	// The score-only view lets equal scores share a dense rank.
	scoreOnly, err := agg.Recompute(ctx, "t1", app.RankingByScore)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if scoreOnly[0].Rank != 1 || scoreOnly[1].Rank != 1 {
		t.Fatalf("expected shared rank 1, got %+v", scoreOnly)
	}
}

func TestRecomputeSkipsWithdrawn(t *testing.T) {
	ctx := context.Background()
	store := memory.NewParticipantStore()
	seedParticipants(t, store, "active")
	_, _, _ = store.GetOrCreate(ctx, domain.Participant{
		ID: "p-gone", TournamentID: "t1", UserID: "gone",
		Discipline: domain.DisciplineMath, Status: domain.ParticipantWithdrawn,
	})
	agg := app.NewAggregator(store, nil)

	entries, err := agg.Recompute(ctx, "t1", app.RankingTieBroken)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "active" {
		t.Fatalf("withdrawn participant should not rank: %+v", entries)
	}
}
