package postgres

import (
	"context"
	"errors"
	"fmt"

	"tournament-session-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TournamentStore reads and sweeps tournaments in Postgres.
type TournamentStore struct {
	pool *pgxpool.Pool
}

func NewTournamentStore(pool *pgxpool.Pool) *TournamentStore {
	return &TournamentStore{pool: pool}
}

const tournamentColumns = `id, title, discipline, status, starts_at, ends_at, max_participants, created_at`

func (s *TournamentStore) Get(ctx context.Context, id string) (domain.Tournament, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id=$1`, id)
	t, err := scanTournament(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tournament{}, domain.ErrTournamentNotFound
	}
	if err != nil {
		return domain.Tournament{}, fmt.Errorf("get tournament: %w", err)
	}
	return t, nil
}

func (s *TournamentStore) ListByDiscipline(ctx context.Context, discipline domain.Discipline) ([]domain.Tournament, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tournamentColumns+` FROM tournaments WHERE discipline=$1 ORDER BY created_at, id`, string(discipline))
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()
	return collectTournaments(rows)
}

func (s *TournamentStore) ListAll(ctx context.Context) ([]domain.Tournament, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tournamentColumns+` FROM tournaments ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()
	return collectTournaments(rows)
}

func (s *TournamentStore) UpdateStatus(ctx context.Context, id string, status domain.TournamentStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tournaments SET status=$1 WHERE id=$2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update tournament status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTournamentNotFound
	}
	return nil
}

// Create inserts a tournament row; used by seeds and tests, the admin CRUD
// that normally creates tournaments lives outside this service.
func (s *TournamentStore) Create(ctx context.Context, t domain.Tournament) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tournaments (id, title, discipline, status, starts_at, ends_at, max_participants, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.Title, string(t.Discipline), string(t.Status), t.StartsAt, t.EndsAt, t.MaxParticipants, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create tournament: %w", err)
	}
	return nil
}

func scanTournament(row pgx.Row) (domain.Tournament, error) {
	var t domain.Tournament
	var discipline, status string
	err := row.Scan(&t.ID, &t.Title, &discipline, &status, &t.StartsAt, &t.EndsAt, &t.MaxParticipants, &t.CreatedAt)
	if err != nil {
		return domain.Tournament{}, err
	}
	t.Discipline = domain.Discipline(discipline)
	t.Status = domain.TournamentStatus(status)
	return t, nil
}

func collectTournaments(rows pgx.Rows) ([]domain.Tournament, error) {
	var out []domain.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
