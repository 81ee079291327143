package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"tournament-session-service/internal/domain"
	"tournament-session-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository caches issued question sets in Redis and falls back to
// a loader on cache miss. The whole set is stored as one JSON value:
// SET tournament:{id}:questions:{discipline} {json} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error) {
	key := r.key(tournamentID, discipline)

	if set, ok := r.fromCache(ctx, key); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if set, ok := r.fromCache(ctx, key); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestions(ctx, tournamentID, discipline)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if payload, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, key, payload, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) fromCache(ctx context.Context, key string) (domain.QuestionSet, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *QuestionRepository) key(tournamentID string, discipline domain.Discipline) string {
	return "tournament:" + tournamentID + ":questions:" + string(discipline)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
