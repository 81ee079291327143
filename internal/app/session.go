package app

import (
	"sync"
	"time"

	"tournament-session-service/internal/domain"
)

// SessionState is the explicit phase of one participant's session.
type SessionState string

const (
	StateIdle         SessionState = "idle"
	StateInTournament SessionState = "in_tournament"
	StateOnQuestion   SessionState = "on_question"
	StateCompleted    SessionState = "completed"
)

// SessionConfig tunes the per-question countdown and the wrap behavior after
// the last question.
type SessionConfig struct {
	QuestionBudget time.Duration
	// WrapQuestions re-opens the question cycle at index 0 after the last
	// question. Answered and expired indices stay locked across wraps; only
	// the outer tournament clock ends the session.
	WrapQuestions bool
}

// EventKind labels what a clock tick produced.
type EventKind string

const (
	EventQuestionExpired   EventKind = "question_expired"
	EventTournamentExpired EventKind = "tournament_expired"
)

// Event is emitted by Tick for the orchestrator to act on. An expired
// question records no attempt; it only locks the index.
type Event struct {
	Kind          EventKind
	QuestionIndex int
}

type lockReason int

const (
	lockAnswered lockReason = iota + 1
	lockExpired
)

// SessionSnapshot is the per-second projection rendered by clients. The
// remaining-time fields are derived from server-held deadlines; clients
// never report time back.
type SessionSnapshot struct {
	TournamentID        string       `json:"tournamentId"`
	UserID              string       `json:"userId"`
	Discipline          string       `json:"discipline"`
	State               SessionState `json:"state"`
	QuestionIndex       int          `json:"questionIndex"`
	TournamentRemaining int          `json:"tournamentRemaining"`
	QuestionRemaining   int          `json:"questionRemaining"`
	Score               int          `json:"score"`
	SolvedCount         int          `json:"solvedCount"`
	Rank                int          `json:"rank"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// Session is the dual-countdown state machine for one participant in one
// tournament: the outer tournament clock counts down to EndsAt, the inner
// question clock resets on every question transition. Transitions happen in
// Tick and in submission paths; both re-derive remaining time from the
// server clock, which keeps the timer server-authoritative.
type Session struct {
	tournamentID  string
	userID        string
	discipline    domain.Discipline
	endsAt        time.Time
	questionCount int
	cfg           SessionConfig
	now           func() time.Time

	mu                sync.Mutex
	state             SessionState
	questionIndex     int
	questionStartedAt time.Time
	locks             map[int]lockReason
	score             int
	solved            int
	rank              int
	subscribers       map[chan SessionSnapshot]struct{}
}

// NewSession starts a session on question 0 with a fresh question clock.
func NewSession(t domain.Tournament, userID string, questionCount int, cfg SessionConfig) *Session {
	return NewSessionWithClock(t, userID, questionCount, cfg, time.Now)
}

// NewSessionWithClock is used by tests for deterministic countdowns.
func NewSessionWithClock(t domain.Tournament, userID string, questionCount int, cfg SessionConfig, now func() time.Time) *Session {
	if cfg.QuestionBudget <= 0 {
		cfg.QuestionBudget = t.Discipline.QuestionBudget()
	}
	s := &Session{
		tournamentID:  t.ID,
		userID:        userID,
		discipline:    t.Discipline,
		endsAt:        t.EndsAt,
		questionCount: questionCount,
		cfg:           cfg,
		now:           now,
		state:         StateInTournament,
		locks:         make(map[int]lockReason),
		subscribers:   make(map[chan SessionSnapshot]struct{}),
	}
	if questionCount > 0 {
		s.state = StateOnQuestion
		s.questionIndex = 0
		s.questionStartedAt = now()
	}
	return s
}

// Tick advances the state machine by one observation of the clock and
// broadcasts a snapshot. It performs no I/O and never blocks on grading.
func (s *Session) Tick() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCompleted {
		return nil
	}

	now := s.now()
	var events []Event

	if !now.Before(s.endsAt) {
		s.state = StateCompleted
		events = append(events, Event{Kind: EventTournamentExpired})
		s.broadcastLocked()
		return events
	}

	if s.state == StateOnQuestion && !now.Before(s.questionDeadlineLocked()) {
		expired := s.questionIndex
		s.locks[expired] = lockExpired
		s.advanceLocked(now)
		events = append(events, Event{Kind: EventQuestionExpired, QuestionIndex: expired})
	}

	s.broadcastLocked()
	return events
}

// CanSubmit validates a submission for the question index against the
// server clocks and lock table. Any unlocked index may be answered while
// the tournament runs; answered and expired indices are rejected.
func (s *Session) CanSubmit(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.state == StateCompleted || !now.Before(s.endsAt) {
		s.state = StateCompleted
		return domain.ErrTournamentExpired
	}
	if index < 0 || index >= s.questionCount {
		return domain.ErrQuestionNotFound
	}
	switch s.locks[index] {
	case lockAnswered:
		return domain.ErrQuestionAlreadyAnswered
	case lockExpired:
		return domain.ErrQuestionExpired
	}
	// The current question may have run out between ticks; re-check here
	// rather than trusting the last tick.
	if s.state == StateOnQuestion && index == s.questionIndex && !now.Before(s.questionDeadlineLocked()) {
		s.locks[index] = lockExpired
		s.advanceLocked(now)
		return domain.ErrQuestionExpired
	}
	return nil
}

// MarkAnswered locks the index against resubmission and advances past it if
// it is the current question.
func (s *Session) MarkAnswered(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[index] = lockAnswered
	if s.state == StateOnQuestion && index == s.questionIndex {
		s.advanceLocked(s.now())
	}
	s.broadcastLocked()
}

// advanceLocked moves to the next unlocked question, wrapping to index 0
// when configured. With every index locked the session parks in
// InTournament: out of questions, outer clock still running.
func (s *Session) advanceLocked(now time.Time) {
	if s.questionCount == 0 {
		s.state = StateInTournament
		return
	}
	for step := 1; step <= s.questionCount; step++ {
		next := s.questionIndex + step
		if next >= s.questionCount {
			if !s.cfg.WrapQuestions {
				break
			}
			next %= s.questionCount
		}
		if _, taken := s.locks[next]; !taken {
			s.questionIndex = next
			s.questionStartedAt = now
			s.state = StateOnQuestion
			return
		}
	}
	s.state = StateInTournament
}

func (s *Session) questionDeadlineLocked() time.Time {
	return s.questionStartedAt.Add(s.cfg.QuestionBudget)
}

// UpdateStanding refreshes the score fields rendered in snapshots.
func (s *Session) UpdateStanding(score, solved, rank int) {
	s.mu.Lock()
	s.score, s.solved, s.rank = score, solved, rank
	s.broadcastLocked()
	s.mu.Unlock()
}

// ForceComplete ends the session immediately: the participant left, or the
// tournament flipped to finished/cancelled under us.
func (s *Session) ForceComplete() {
	s.mu.Lock()
	if s.state != StateCompleted {
		s.state = StateCompleted
		s.broadcastLocked()
	}
	s.mu.Unlock()
}

// Completed reports whether the session stopped accepting submissions.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCompleted
}

// Snapshot derives the current projection from the server clocks.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionSnapshot {
	now := s.now()
	snap := SessionSnapshot{
		TournamentID:  s.tournamentID,
		UserID:        s.userID,
		Discipline:    string(s.discipline),
		State:         s.state,
		QuestionIndex: s.questionIndex,
		Score:         s.score,
		SolvedCount:   s.solved,
		Rank:          s.rank,
		UpdatedAt:     now,
	}
	if s.state != StateCompleted {
		snap.TournamentRemaining = remainingSeconds(now, s.endsAt)
	}
	if s.state == StateOnQuestion {
		snap.QuestionRemaining = remainingSeconds(now, s.questionDeadlineLocked())
	}
	return snap
}

// Subscribe returns a channel of snapshots plus a cancel func; the caller
// must cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan SessionSnapshot, func()) {
	ch := make(chan SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale frame so a slow client never blocks the tick.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func remainingSeconds(now, deadline time.Time) int {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
