package domain

import (
	"strings"
	"time"
)

// Discipline is the subject track a tournament runs under. It selects both
// the question content and the grading rule.
type Discipline string

const (
	DisciplineMath        Discipline = "math"
	DisciplineEnglish     Discipline = "english"
	DisciplineProgramming Discipline = "programming"
)

// ParseDiscipline normalizes user-supplied discipline tags.
func ParseDiscipline(raw string) (Discipline, bool) {
	switch Discipline(strings.ToLower(strings.TrimSpace(raw))) {
	case DisciplineMath:
		return DisciplineMath, true
	case DisciplineEnglish:
		return DisciplineEnglish, true
	case DisciplineProgramming:
		return DisciplineProgramming, true
	}
	return "", false
}

// QuestionBudget is the per-question countdown for a discipline.
func (d Discipline) QuestionBudget() time.Duration {
	switch d {
	case DisciplineEnglish:
		return 120 * time.Second
	default:
		return 90 * time.Second
	}
}

// TournamentStatus tracks the organizer-driven lifecycle of a tournament.
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentScheduled TournamentStatus = "scheduled"
	TournamentActive    TournamentStatus = "active"
	TournamentFinished  TournamentStatus = "finished"
	TournamentCancelled TournamentStatus = "cancelled"
)

// Tournament is a timed competition window for one discipline.
type Tournament struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Discipline      Discipline       `json:"discipline"`
	Status          TournamentStatus `json:"status"`
	StartsAt        time.Time        `json:"startsAt"`
	EndsAt          time.Time        `json:"endsAt"`
	MaxParticipants int              `json:"maxParticipants"` // 0 means uncapped
	CreatedAt       time.Time        `json:"createdAt"`
}

// Live reports whether the tournament accepts participation at now:
// status active and now inside [StartsAt, EndsAt).
func (t Tournament) Live(now time.Time) bool {
	return t.Status == TournamentActive &&
		!now.Before(t.StartsAt) &&
		now.Before(t.EndsAt)
}

// ParticipantStatus tracks enrollment state within one tournament.
type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantWithdrawn ParticipantStatus = "withdrawn"
)

// Participant is one user's enrollment in one tournament. There is at most
// one row per (tournament, user); Score and SolvedCount are mutated only
// through atomic increments, Rank is a derived convenience.
type Participant struct {
	ID           string            `json:"id"`
	TournamentID string            `json:"tournamentId"`
	UserID       string            `json:"userId"`
	Discipline   Discipline        `json:"discipline"`
	Status       ParticipantStatus `json:"status"`
	Score        int               `json:"score"`
	SolvedCount  int               `json:"solvedCount"`
	Rank         int               `json:"rank"`
	JoinedAt     time.Time         `json:"joinedAt"`
	// LastScoredAt is the tie-break key: of two participants on the same
	// score, the one who reached it earlier ranks first.
	LastScoredAt time.Time `json:"lastScoredAt"`
}

// Difficulty buckets questions into fixed point values.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Points returns the fixed value of a question at this difficulty.
// Programming questions carry a higher scale than math/english.
func (d Difficulty) Points(discipline Discipline) int {
	if discipline == DisciplineProgramming {
		switch d {
		case DifficultyEasy:
			return 10
		case DifficultyMedium:
			return 20
		case DifficultyHard:
			return 30
		}
		return 0
	}
	switch d {
	case DifficultyEasy:
		return 5
	case DifficultyMedium:
		return 10
	case DifficultyHard:
		return 20
	}
	return 0
}

// Option is one multiple-choice answer.
type Option struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// TestCase is one hidden programming test. Never exposed to clients.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

// Question is one item issued in a tournament session, immutable once
// issued. The payload is discipline-specific: Options+CorrectOption for
// math, the Prompt alone for english essays, StarterCode+TestCases for
// programming.
type Question struct {
	Index         int        `json:"index"`
	Discipline    Discipline `json:"discipline"`
	Difficulty    Difficulty `json:"difficulty"`
	Prompt        string     `json:"prompt"`
	Options       []Option   `json:"options,omitempty"`
	CorrectOption int        `json:"correctOption,omitempty"`
	StarterCode   string     `json:"starterCode,omitempty"`
	TestCases     []TestCase `json:"testCases,omitempty"`
}

// QuestionSet is the ordered bank issued for one tournament.
type QuestionSet struct {
	TournamentID string     `json:"tournamentId"`
	Discipline   Discipline `json:"discipline"`
	Questions    []Question `json:"questions"`
}

// Attempt is the append-only audit record of one graded submission. It is
// never mutated after creation; at most one exists per participant+question.
type Attempt struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	QuestionIndex int       `json:"questionIndex"`
	SubmittedAt   time.Time `json:"submittedAt"`
	RawAnswer     string    `json:"rawAnswer"`
	Verdict       string    `json:"verdict"`
	PointsAwarded int       `json:"pointsAwarded"`
}

// RankingEntry is a derived leaderboard row; always recomputed from
// Participant state, never stored as a source of truth.
type RankingEntry struct {
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	Score         int    `json:"score"`
	SolvedCount   int    `json:"solvedCount"`
	Rank          int    `json:"rank"`
}

// Leaderboard captures the ordered standings of one tournament.
type Leaderboard struct {
	TournamentID string         `json:"tournamentId"`
	Entries      []RankingEntry `json:"entries"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// GradeResult summarizes the outcome of one submission for one participant.
type GradeResult struct {
	QuestionIndex int    `json:"questionIndex"`
	Verdict       string `json:"verdict"`
	Awarded       int    `json:"awarded"`
	TotalScore    int    `json:"totalScore"`
}
