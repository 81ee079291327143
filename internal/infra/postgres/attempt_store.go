package postgres

import (
	"context"
	"fmt"

	"tournament-session-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore persists the append-only attempt trail. The
// UNIQUE (participant_id, question_index) constraint arbitrates concurrent
// duplicate submissions: only the first insert lands.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Record(ctx context.Context, a domain.Attempt) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO attempts (id, participant_id, question_index, submitted_at, raw_answer, verdict, points_awarded)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (participant_id, question_index) DO NOTHING`,
		a.ID, a.ParticipantID, a.QuestionIndex, a.SubmittedAt, a.RawAnswer, a.Verdict, a.PointsAwarded)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionAlreadyAnswered
	}
	return nil
}

func (s *AttemptStore) ListByParticipant(ctx context.Context, participantID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, participant_id, question_index, submitted_at, raw_answer, verdict, points_awarded
		 FROM attempts WHERE participant_id=$1 ORDER BY question_index`, participantID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.QuestionIndex, &a.SubmittedAt,
			&a.RawAnswer, &a.Verdict, &a.PointsAwarded); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
