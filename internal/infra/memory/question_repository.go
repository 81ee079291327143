package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"tournament-session-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches issued question banks from a backing store (the
// question bank gateway or Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets with TTL to avoid hammering the
// bank on every submission.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error) {
	key := tournamentID + ":" + string(discipline)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadQuestions(ctx, tournamentID, discipline)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedSet{set: set, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// StaticQuestionLoader serves question sets from a fixed map (tests/demos).
type StaticQuestionLoader struct {
	sets map[string]domain.QuestionSet // tournamentID:discipline
}

func NewStaticQuestionLoader(sets map[string]domain.QuestionSet) *StaticQuestionLoader {
	return &StaticQuestionLoader{sets: sets}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error) {
	if set, ok := l.sets[tournamentID+":"+string(discipline)]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionNotFound
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
