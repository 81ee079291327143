package app

import (
	"context"
	"log"
	"time"

	"tournament-session-service/internal/domain"

	"github.com/google/uuid"
)

// QuestionRepository loads the question bank for a tournament (cached over
// the question bank gateway or Postgres).
type QuestionRepository interface {
	GetQuestions(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error)
}

// AttemptStore persists the append-only attempt trail. Record must perform a
// check-and-insert: a duplicate (participant, question) attempt returns
// domain.ErrQuestionAlreadyAnswered and leaves the first write untouched.
type AttemptStore interface {
	Record(ctx context.Context, attempt domain.Attempt) error
	ListByParticipant(ctx context.Context, participantID string) ([]domain.Attempt, error)
}

// SessionRepository tracks live sessions keyed by tournament+user.
type SessionRepository interface {
	GetOrCreate(key string, create func() *Session) (*Session, bool)
	Get(key string) (*Session, bool)
	Delete(key string)
}

// EngineConfig tunes the orchestrator.
type EngineConfig struct {
	Session        SessionConfig
	SandboxTimeout time.Duration
	// ProbeEvery controls how many ticks pass between asynchronous checks
	// that the tournament is still active.
	ProbeEvery int
}

// TournamentService wires the engine together: directory resolves the
// window, registry enrolls, the session paces, graders score, and the
// aggregator keeps the standings.
type TournamentService struct {
	directory *Directory
	registry  *Registry
	questions QuestionRepository
	attempts  AttemptStore
	ranking   *Aggregator
	sessions  SessionRepository
	graders   map[domain.Discipline]Grader
	cfg       EngineConfig
	now       func() time.Time
	done      chan struct{}
}

func NewTournamentService(
	directory *Directory,
	registry *Registry,
	questions QuestionRepository,
	attempts AttemptStore,
	ranking *Aggregator,
	sessions SessionRepository,
	runner CodeRunner,
	cfg EngineConfig,
) *TournamentService {
	return newTournamentServiceWithClock(directory, registry, questions, attempts, ranking, sessions, runner, cfg, time.Now)
}

func newTournamentServiceWithClock(
	directory *Directory,
	registry *Registry,
	questions QuestionRepository,
	attempts AttemptStore,
	ranking *Aggregator,
	sessions SessionRepository,
	runner CodeRunner,
	cfg EngineConfig,
	now func() time.Time,
) *TournamentService {
	if cfg.ProbeEvery <= 0 {
		cfg.ProbeEvery = 5
	}
	graders := map[domain.Discipline]Grader{
		domain.DisciplineMath:        GraderFor(domain.DisciplineMath, runner, cfg.SandboxTimeout),
		domain.DisciplineEnglish:     GraderFor(domain.DisciplineEnglish, runner, cfg.SandboxTimeout),
		domain.DisciplineProgramming: GraderFor(domain.DisciplineProgramming, runner, cfg.SandboxTimeout),
	}
	return &TournamentService{
		directory: directory,
		registry:  registry,
		questions: questions,
		attempts:  attempts,
		ranking:   ranking,
		sessions:  sessions,
		graders:   graders,
		cfg:       cfg,
		now:       now,
		done:      make(chan struct{}),
	}
}

// Close stops every running session ticker.
func (s *TournamentService) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// JoinDiscipline resolves the live tournament for the discipline and joins it.
func (s *TournamentService) JoinDiscipline(ctx context.Context, userID string, discipline domain.Discipline) (domain.Tournament, domain.Participant, SessionSnapshot, error) {
	tournament, err := s.directory.ResolveActive(ctx, discipline)
	if err != nil {
		return domain.Tournament{}, domain.Participant{}, SessionSnapshot{}, err
	}
	participant, snap, err := s.Join(ctx, tournament.ID, userID, discipline)
	return tournament, participant, snap, err
}

// Join enrolls the user and ensures a ticking session exists. Idempotent:
// re-joining returns the existing participant and session untouched.
func (s *TournamentService) Join(ctx context.Context, tournamentID, userID string, discipline domain.Discipline) (domain.Participant, SessionSnapshot, error) {
	participant, err := s.registry.Join(ctx, tournamentID, userID, discipline)
	if err != nil {
		return domain.Participant{}, SessionSnapshot{}, err
	}

	tournament, err := s.directory.Get(ctx, tournamentID)
	if err != nil {
		return domain.Participant{}, SessionSnapshot{}, err
	}
	set, err := s.questions.GetQuestions(ctx, tournamentID, discipline)
	if err != nil {
		return domain.Participant{}, SessionSnapshot{}, err
	}

	session, created := s.sessions.GetOrCreate(sessionKey(tournamentID, userID), func() *Session {
		return NewSessionWithClock(tournament, userID, len(set.Questions), s.cfg.Session, s.now)
	})
	if created {
		session.UpdateStanding(participant.Score, participant.SolvedCount, participant.Rank)
		go s.runSession(session, tournamentID, userID)
	}
	return participant, session.Snapshot(), nil
}

// runSession drives one session at 1 Hz. Ticks only move clocks and
// broadcast; grading and the liveness probe run off this goroutine so a slow
// backend can never stall the countdown.
func (s *TournamentService) runSession(session *Session, tournamentID, userID string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-s.done:
			session.ForceComplete()
			return
		case <-ticker.C:
			for _, ev := range session.Tick() {
				switch ev.Kind {
				case EventQuestionExpired:
					// A skipped question scores zero and records no attempt;
					// the lock alone prevents answering it later.
					log.Printf("session %s/%s: question %d expired unanswered", tournamentID, userID, ev.QuestionIndex)
				case EventTournamentExpired:
					log.Printf("session %s/%s: tournament window closed", tournamentID, userID)
				}
			}
			if session.Completed() {
				return
			}
			ticks++
			if ticks%s.cfg.ProbeEvery == 0 {
				go s.probeTournament(session, tournamentID)
			}
		}
	}
}

// probeTournament force-completes the session when the tournament flips to
// finished or cancelled mid-run.
func (s *TournamentService) probeTournament(session *Session, tournamentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	tournament, err := s.directory.Get(ctx, tournamentID)
	if err != nil {
		return
	}
	if !tournament.Live(s.now()) {
		session.ForceComplete()
	}
}

// Submit grades one answer. Exactly one immutable attempt is recorded per
// accepted submission; duplicates and late arrivals are rejected with typed
// errors, never silently zero-scored.
func (s *TournamentService) Submit(ctx context.Context, tournamentID, userID string, questionIndex int, rawAnswer string) (domain.GradeResult, domain.Leaderboard, error) {
	session, ok := s.sessions.Get(sessionKey(tournamentID, userID))
	if !ok {
		return domain.GradeResult{}, domain.Leaderboard{}, domain.ErrSessionNotFound
	}
	participant, err := s.registry.Get(ctx, tournamentID, userID)
	if err != nil {
		return domain.GradeResult{}, domain.Leaderboard{}, err
	}
	if err := session.CanSubmit(questionIndex); err != nil {
		return domain.GradeResult{}, domain.Leaderboard{}, err
	}

	set, err := s.questions.GetQuestions(ctx, tournamentID, participant.Discipline)
	if err != nil {
		return domain.GradeResult{}, domain.Leaderboard{}, err
	}
	if questionIndex < 0 || questionIndex >= len(set.Questions) {
		return domain.GradeResult{}, domain.Leaderboard{}, domain.ErrQuestionNotFound
	}
	question := set.Questions[questionIndex]

	grader := s.graders[participant.Discipline]
	verdict, points, err := grader.Grade(ctx, question, rawAnswer)
	if err != nil {
		return domain.GradeResult{}, domain.Leaderboard{}, err
	}

	// First accepted submission wins: the store's uniqueness check decides a
	// race between concurrent duplicates.
	err = s.attempts.Record(ctx, domain.Attempt{
		ID:            uuid.NewString(),
		ParticipantID: participant.ID,
		QuestionIndex: questionIndex,
		SubmittedAt:   s.now(),
		RawAnswer:     rawAnswer,
		Verdict:       verdict,
		PointsAwarded: points,
	})
	if err != nil {
		return domain.GradeResult{}, domain.Leaderboard{}, err
	}
	session.MarkAnswered(questionIndex)

	participant, err = s.ranking.ApplyScore(ctx, participant.ID, points)
	if err != nil {
		return domain.GradeResult{}, domain.Leaderboard{}, err
	}

	leaderboard, err := s.ranking.Leaderboard(ctx, tournamentID, RankingTieBroken)
	if err != nil {
		return domain.GradeResult{}, domain.Leaderboard{}, err
	}
	session.UpdateStanding(participant.Score, participant.SolvedCount, rankOf(leaderboard, userID))

	return domain.GradeResult{
		QuestionIndex: questionIndex,
		Verdict:       verdict,
		Awarded:       points,
		TotalScore:    participant.Score,
	}, leaderboard, nil
}

// Evaluate grades an answer statelessly, without a session or attempt. It
// backs the standalone grading endpoint used for practice checks.
func (s *TournamentService) Evaluate(ctx context.Context, discipline domain.Discipline, question domain.Question, rawAnswer string) (string, int, error) {
	grader, ok := s.graders[discipline]
	if !ok {
		return "", 0, domain.ErrQuestionNotFound
	}
	return grader.Grade(ctx, question, rawAnswer)
}

// Ranking exposes both tie-broken and score-only leaderboard views.
func (s *TournamentService) Ranking(ctx context.Context, tournamentID string, view RankingView) (domain.Leaderboard, error) {
	return s.ranking.Leaderboard(ctx, tournamentID, view)
}

// Questions returns the issued bank with answer keys and hidden tests
// stripped, safe to hand to clients.
func (s *TournamentService) Questions(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error) {
	set, err := s.questions.GetQuestions(ctx, tournamentID, discipline)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	sanitized := make([]domain.Question, len(set.Questions))
	for i, q := range set.Questions {
		q.CorrectOption = 0
		q.TestCases = nil
		sanitized[i] = q
	}
	set.Questions = sanitized
	return set, nil
}

// Participant returns the enrollment row for (tournament, user).
func (s *TournamentService) Participant(ctx context.Context, tournamentID, userID string) (domain.Participant, error) {
	return s.registry.Get(ctx, tournamentID, userID)
}

// ActiveTournaments lists live tournaments for a discipline.
func (s *TournamentService) ActiveTournaments(ctx context.Context, discipline domain.Discipline) ([]domain.Tournament, error) {
	return s.directory.ListActive(ctx, discipline)
}

// Snapshot returns the current session projection.
func (s *TournamentService) Snapshot(tournamentID, userID string) (SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionKey(tournamentID, userID))
	if !ok {
		return SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// SubscribeSession streams 1 Hz snapshots; the caller must cancel.
func (s *TournamentService) SubscribeSession(tournamentID, userID string) (<-chan SessionSnapshot, func(), error) {
	session, ok := s.sessions.Get(sessionKey(tournamentID, userID))
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Leave stops the participant's session. The enrollment row stays; scores
// are never deleted while the tournament runs.
func (s *TournamentService) Leave(tournamentID, userID string) {
	key := sessionKey(tournamentID, userID)
	if session, ok := s.sessions.Get(key); ok {
		session.ForceComplete()
		s.sessions.Delete(key)
	}
}

func sessionKey(tournamentID, userID string) string {
	return tournamentID + ":" + userID
}

func rankOf(lb domain.Leaderboard, userID string) int {
	for _, e := range lb.Entries {
		if e.UserID == userID {
			return e.Rank
		}
	}
	return 0
}
