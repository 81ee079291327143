package redis

import (
	"context"
	"time"

	"tournament-session-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Leaderboard mirrors tournament standings into a Redis sorted set for
// cheap reads: ZINCRBY on every score change, ZREVRANGE to page the board.
// The participant store remains the source of truth; this view may lag a
// grade or two behind and that is acceptable.
type Leaderboard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboard(client *redis.Client, ttl time.Duration) *Leaderboard {
	return &Leaderboard{client: client, ttl: ttl}
}

// Increment bumps the user's mirrored score.
func (l *Leaderboard) Increment(ctx context.Context, tournamentID, userID string, delta int) error {
	key := l.key(tournamentID)
	pipe := l.client.Pipeline()
	pipe.ZIncrBy(ctx, key, float64(delta), userID)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns the highest-scored users, rank assigned by position. Ties in
// the mirror share a dense rank only by score; callers needing the
// tie-broken view recompute from the participant store.
func (l *Leaderboard) Top(ctx context.Context, tournamentID string, n int64) ([]domain.RankingEntry, error) {
	members, err := l.client.ZRevRangeWithScores(ctx, l.key(tournamentID), 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.RankingEntry, 0, len(members))
	rank := 0
	lastScore := -1
	for _, m := range members {
		score := int(m.Score)
		if score != lastScore {
			rank++
			lastScore = score
		}
		entries = append(entries, domain.RankingEntry{
			UserID: m.Member.(string),
			Score:  score,
			Rank:   rank,
		})
	}
	return entries, nil
}

// Remove withdraws a user from the mirror.
func (l *Leaderboard) Remove(ctx context.Context, tournamentID, userID string) error {
	return l.client.ZRem(ctx, l.key(tournamentID), userID).Err()
}

func (l *Leaderboard) key(tournamentID string) string {
	return "tournament:" + tournamentID + ":leaderboard"
}
