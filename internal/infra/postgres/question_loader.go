package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tournament-session-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads issued question sets stored as JSONB.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT data FROM question_sets WHERE tournament_id=$1 AND discipline=$2`,
		tournamentID, string(discipline)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}

	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("unmarshal question set: %w", err)
	}
	set.TournamentID = tournamentID
	set.Discipline = discipline
	return set, nil
}
