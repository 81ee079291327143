package app

import (
	"context"
	"log"
	"sort"
	"time"

	"tournament-session-service/internal/domain"
)

// RankingView selects how ties are presented.
type RankingView string

const (
	// RankingByScore ranks purely by score; equal scores share a rank.
	RankingByScore RankingView = "score"
	// RankingTieBroken breaks ties by who reached the score first.
	RankingTieBroken RankingView = "tiebreak"
)

// LeaderboardMirror is an optional read-side cache of standings (Redis
// sorted set). Mirror writes are best-effort; the participant store stays
// the source of truth.
type LeaderboardMirror interface {
	Increment(ctx context.Context, tournamentID, userID string, delta int) error
}

// Aggregator owns participant score mutation and leaderboard recomputation.
type Aggregator struct {
	participants ParticipantStore
	mirror       LeaderboardMirror
	now          func() time.Time
}

func NewAggregator(participants ParticipantStore, mirror LeaderboardMirror) *Aggregator {
	return NewAggregatorWithClock(participants, mirror, time.Now)
}

// NewAggregatorWithClock allows deterministic time in tests.
func NewAggregatorWithClock(participants ParticipantStore, mirror LeaderboardMirror, now func() time.Time) *Aggregator {
	return &Aggregator{participants: participants, mirror: mirror, now: now}
}

// ApplyScore atomically adds delta to the participant's score, bumping
// SolvedCount and LastScoredAt only for positive deltas. Increments are
// order-independent, so concurrent grades never lose points.
func (a *Aggregator) ApplyScore(ctx context.Context, participantID string, delta int) (domain.Participant, error) {
	participant, err := a.participants.ApplyScore(ctx, participantID, delta, a.now())
	if err != nil {
		return domain.Participant{}, err
	}
	if a.mirror != nil && delta != 0 {
		if err := a.mirror.Increment(ctx, participant.TournamentID, participant.UserID, delta); err != nil {
			log.Printf("leaderboard mirror update failed for %s: %v", participant.UserID, err)
		}
	}
	return participant, nil
}

// Recompute reads every participant of the tournament and assigns dense
// 1-based ranks. It tolerates a slightly stale snapshot; ranking is
// informational, not authoritative for scoring.
func (a *Aggregator) Recompute(ctx context.Context, tournamentID string, view RankingView) ([]domain.RankingEntry, error) {
	participants, err := a.participants.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	active := participants[:0]
	for _, p := range participants {
		if p.Status != domain.ParticipantWithdrawn {
			active = append(active, p)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Score != active[j].Score {
			return active[i].Score > active[j].Score
		}
		if view == RankingTieBroken && !active[i].LastScoredAt.Equal(active[j].LastScoredAt) {
			return active[i].LastScoredAt.Before(active[j].LastScoredAt)
		}
		return active[i].UserID < active[j].UserID
	})

	entries := make([]domain.RankingEntry, 0, len(active))
	rank := 0
	for i, p := range active {
		if i == 0 || !sameRank(view, active[i-1], p) {
			rank++
		}
		entries = append(entries, domain.RankingEntry{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			Score:         p.Score,
			SolvedCount:   p.SolvedCount,
			Rank:          rank,
		})
	}
	return entries, nil
}

// Leaderboard packages a recomputed ranking with its snapshot time.
func (a *Aggregator) Leaderboard(ctx context.Context, tournamentID string, view RankingView) (domain.Leaderboard, error) {
	entries, err := a.Recompute(ctx, tournamentID, view)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		TournamentID: tournamentID,
		Entries:      entries,
		UpdatedAt:    a.now(),
	}, nil
}

// sameRank decides whether two adjacent sorted participants share a rank.
// Ties share a rank only on exact score equality, and in the tie-broken view
// only when the score was reached at the same instant.
func sameRank(view RankingView, a, b domain.Participant) bool {
	if a.Score != b.Score {
		return false
	}
	if view == RankingTieBroken {
		return a.LastScoredAt.Equal(b.LastScoredAt)
	}
	return true
}
