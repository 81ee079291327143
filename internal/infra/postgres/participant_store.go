package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tournament-session-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ParticipantStore persists participants. The UNIQUE (tournament_id, user_id)
// constraint makes GetOrCreate idempotent under concurrent joins, and
// ApplyScore is a single UPDATE so increments never race.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

func NewParticipantStore(pool *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

const participantColumns = `id, tournament_id, user_id, discipline, status, score, solved_count, joined_at, last_scored_at`

func (s *ParticipantStore) GetOrCreate(ctx context.Context, p domain.Participant) (domain.Participant, bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO participants (id, tournament_id, user_id, discipline, status, score, solved_count, joined_at, last_scored_at)
		 VALUES ($1,$2,$3,$4,$5,0,0,$6,$6)
		 ON CONFLICT (tournament_id, user_id) DO NOTHING`,
		p.ID, p.TournamentID, p.UserID, string(p.Discipline), string(p.Status), p.JoinedAt)
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("insert participant: %w", err)
	}
	created := tag.RowsAffected() > 0

	stored, err := s.Get(ctx, p.TournamentID, p.UserID)
	if err != nil {
		return domain.Participant{}, false, err
	}
	return stored, created, nil
}

func (s *ParticipantStore) Get(ctx context.Context, tournamentID, userID string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE tournament_id=$1 AND user_id=$2`,
		tournamentID, userID)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) CountActive(ctx context.Context, tournamentID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE tournament_id=$1 AND status <> 'withdrawn'`,
		tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

// ApplyScore runs the increment inside the database, scoped to one row.
func (s *ParticipantStore) ApplyScore(ctx context.Context, participantID string, delta int, at time.Time) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE participants
		 SET score = GREATEST(score + $1, 0),
		     solved_count = solved_count + CASE WHEN $1 > 0 THEN 1 ELSE 0 END,
		     last_scored_at = CASE WHEN $1 > 0 THEN $2 ELSE last_scored_at END
		 WHERE id = $3
		 RETURNING `+participantColumns,
		delta, at, participantID)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("apply score: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) ListByTournament(ctx context.Context, tournamentID string) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE tournament_id=$1`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	var discipline, status string
	err := row.Scan(&p.ID, &p.TournamentID, &p.UserID, &discipline, &status,
		&p.Score, &p.SolvedCount, &p.JoinedAt, &p.LastScoredAt)
	if err != nil {
		return domain.Participant{}, err
	}
	p.Discipline = domain.Discipline(discipline)
	p.Status = domain.ParticipantStatus(status)
	return p, nil
}
