package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

type MatchRepository struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

func NewMatchRepository(db *pgxpool.Pool, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

const matchColumns = `
	id,
	player1_user_id, player1_guest_name, player1_name,
	player2_user_id, player2_guest_name, player2_name,
	starting_score, checkout_rule, format, format_value,
	current_set, current_leg,
	player1_legs_won, player2_legs_won, player1_sets_won, player2_sets_won,
	status, winner_player_number,
	started_at, completed_at, duration_seconds,
	created_at, updated_at`

func (r *MatchRepository) Create(ctx context.Context, m *domain.Match) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	// Imported matches arrive already completed, so the winner and
	// timing columns are part of the insert.
	_, err := r.db.Exec(ctx, `
INSERT INTO matches (
	id,
	player1_user_id, player1_guest_name, player1_name,
	player2_user_id, player2_guest_name, player2_name,
	starting_score, checkout_rule, format, format_value,
	current_set, current_leg,
	player1_legs_won, player2_legs_won, player1_sets_won, player2_sets_won,
	status, winner_player_number,
	started_at, completed_at, duration_seconds,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		m.ID,
		m.Player1.UserID, m.Player1.GuestName, m.Player1.Name,
		m.Player2.UserID, m.Player2.GuestName, m.Player2.Name,
		m.StartingScore, m.CheckoutRule, m.Format, m.FormatValue,
		m.CurrentSet, m.CurrentLeg,
		m.Player1LegsWon, m.Player2LegsWon, m.Player1SetsWon, m.Player2SetsWon,
		m.Status, m.WinnerPlayerNumber,
		m.StartedAt, m.CompletedAt, m.DurationSeconds,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	row := r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)

	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	return m, nil
}

// Update writes back every mutable field of the match.
func (r *MatchRepository) Update(ctx context.Context, m *domain.Match) error {
	m.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Exec(ctx, `
UPDATE matches SET
	starting_score = $2, checkout_rule = $3, format = $4, format_value = $5,
	current_set = $6, current_leg = $7,
	player1_legs_won = $8, player2_legs_won = $9,
	player1_sets_won = $10, player2_sets_won = $11,
	status = $12, winner_player_number = $13,
	started_at = $14, completed_at = $15, duration_seconds = $16,
	updated_at = $17
WHERE id = $1`,
		m.ID,
		m.StartingScore, m.CheckoutRule, m.Format, m.FormatValue,
		m.CurrentSet, m.CurrentLeg,
		m.Player1LegsWon, m.Player2LegsWon,
		m.Player1SetsWon, m.Player2SetsWon,
		m.Status, m.WinnerPlayerNumber,
		m.StartedAt, m.CompletedAt, m.DurationSeconds,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

func (r *MatchRepository) ListRecent(ctx context.Context, limit int) ([]domain.Match, error) {
	rows, err := r.db.Query(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	err := row.Scan(
		&m.ID,
		&m.Player1.UserID, &m.Player1.GuestName, &m.Player1.Name,
		&m.Player2.UserID, &m.Player2.GuestName, &m.Player2.Name,
		&m.StartingScore, &m.CheckoutRule, &m.Format, &m.FormatValue,
		&m.CurrentSet, &m.CurrentLeg,
		&m.Player1LegsWon, &m.Player2LegsWon, &m.Player1SetsWon, &m.Player2SetsWon,
		&m.Status, &m.WinnerPlayerNumber,
		&m.StartedAt, &m.CompletedAt, &m.DurationSeconds,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
