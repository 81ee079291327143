package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tournament-session-service/internal/domain"
)

// Grader turns one raw answer into a verdict and a point award. One grader
// is selected per session by discipline; graders never mutate participants.
type Grader interface {
	Grade(ctx context.Context, question domain.Question, rawAnswer string) (verdict string, points int, err error)
}

// CodeRunner executes untrusted code against hidden tests in a bounded,
// out-of-process sandbox. Implementations live in internal/sandbox.
type CodeRunner interface {
	RunTests(ctx context.Context, code string, tests []domain.TestCase) (passed, total int, err error)
}

// MathGrader grades multiple-choice questions by exact option match.
// No partial credit.
type MathGrader struct{}

func (MathGrader) Grade(_ context.Context, question domain.Question, rawAnswer string) (string, int, error) {
	selected, err := strconv.Atoi(strings.TrimSpace(rawAnswer))
	if err != nil {
		return "invalid option", 0, nil
	}
	if selected == question.CorrectOption {
		return "correct", question.Difficulty.Points(question.Discipline), nil
	}
	return "incorrect", 0, nil
}

// EssayGrader applies the word-count rubric. It is a deliberately coarse
// proxy for a real NLP evaluator; the verdict strings are user-facing.
type EssayGrader struct{}

func (EssayGrader) Grade(_ context.Context, _ domain.Question, rawAnswer string) (string, int, error) {
	words := len(strings.Fields(rawAnswer))
	switch {
	case words > 100:
		return "excellent", 10, nil
	case words > 70:
		return "good", 7, nil
	case words > 40:
		return "fair", 5, nil
	case words > 0:
		return "basic", 3, nil
	default:
		return "please write", 0, nil
	}
}

// CodeGrader runs submissions against hidden test cases and awards tiered
// points by pass rate. Every call is bounded by Timeout; sandbox failure
// surfaces as ErrGradingBackendUnavailable rather than a zero-point verdict.
type CodeGrader struct {
	Runner  CodeRunner
	Timeout time.Duration
}

func (g CodeGrader) Grade(ctx context.Context, question domain.Question, rawAnswer string) (string, int, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	passed, total, err := g.Runner.RunTests(runCtx, rawAnswer, question.TestCases)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", 0, domain.ErrGradingBackendUnavailable
		}
		if errors.Is(err, domain.ErrGradingBackendUnavailable) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("run tests: %w", err)
	}
	if total == 0 {
		return "", 0, domain.ErrQuestionNotFound
	}

	rate := float64(passed) / float64(total)
	switch {
	case rate >= 1.0:
		return "perfect", 10, nil
	case rate >= 0.7:
		return "good", 7, nil
	case rate >= 0.4:
		return "fair", 4, nil
	default:
		return "keep trying", 1, nil
	}
}

// GraderFor selects the grading strategy once, at session creation.
func GraderFor(discipline domain.Discipline, runner CodeRunner, sandboxTimeout time.Duration) Grader {
	switch discipline {
	case domain.DisciplineEnglish:
		return EssayGrader{}
	case domain.DisciplineProgramming:
		return CodeGrader{Runner: runner, Timeout: sandboxTimeout}
	default:
		return MathGrader{}
	}
}
