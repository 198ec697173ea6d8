package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/adrianmirek/darterassistant-sub002/internal/constants"
	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

type ThrowRepository struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

func NewThrowRepository(db *pgxpool.Pool, logger zerolog.Logger) *ThrowRepository {
	return &ThrowRepository{db: db, logger: logger}
}

const throwColumns = `
	id, match_id, player_number, set_number, leg_number, round_number, throw_number,
	score, remaining_score, is_checkout_attempt, is_checkout_success, created_at`

const insertThrowSQL = `
INSERT INTO throws (
	id, match_id, player_number, set_number, leg_number, round_number, throw_number,
	score, remaining_score, is_checkout_attempt, is_checkout_success, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (r *ThrowRepository) Insert(ctx context.Context, t *domain.Throw) error {
	if t.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate throw id: %w", err)
		}
		t.ID = id
	}
	t.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx, insertThrowSQL,
		t.ID, t.MatchID, t.PlayerNumber, t.SetNumber, t.LegNumber, t.RoundNumber, t.ThrowNumber,
		t.Score, t.RemainingScore, t.IsCheckoutAttempt, t.IsCheckoutSuccess, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert throw: %w", err)
	}
	return nil
}

// InsertBatch writes all throws in one transaction, chunked so a large
// batch never turns into one oversized statement burst.
func (r *ThrowRepository) InsertBatch(ctx context.Context, throws []domain.Throw) error {
	if len(throws) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for i := 0; i < len(throws); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(throws) {
			end = len(throws)
		}

		for j := i; j < end; j++ {
			t := &throws[j]
			if t.ID == "" {
				id, err := gonanoid.New()
				if err != nil {
					return fmt.Errorf("failed to generate throw id: %w", err)
				}
				t.ID = id
			}
			t.CreatedAt = now

			if _, err := tx.Exec(ctx, insertThrowSQL,
				t.ID, t.MatchID, t.PlayerNumber, t.SetNumber, t.LegNumber, t.RoundNumber, t.ThrowNumber,
				t.Score, t.RemainingScore, t.IsCheckoutAttempt, t.IsCheckoutSuccess, t.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert throw %d/%d: %w", t.RoundNumber, t.ThrowNumber, err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *ThrowRepository) GetByID(ctx context.Context, matchID uuid.UUID, throwID string) (*domain.Throw, error) {
	row := r.db.QueryRow(ctx, `SELECT `+throwColumns+` FROM throws WHERE match_id = $1 AND id = $2`, matchID, throwID)

	t, err := scanThrow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrThrowNotFound
		}
		return nil, fmt.Errorf("failed to load throw: %w", err)
	}
	return t, nil
}

func (r *ThrowRepository) Update(ctx context.Context, t *domain.Throw) error {
	tag, err := r.db.Exec(ctx, `
UPDATE throws SET
	score = $3, remaining_score = $4, is_checkout_attempt = $5, is_checkout_success = $6
WHERE match_id = $1 AND id = $2`,
		t.MatchID, t.ID, t.Score, t.RemainingScore, t.IsCheckoutAttempt, t.IsCheckoutSuccess,
	)
	if err != nil {
		return fmt.Errorf("failed to update throw: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrThrowNotFound
	}
	return nil
}

func (r *ThrowRepository) Delete(ctx context.Context, matchID uuid.UUID, throwID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM throws WHERE match_id = $1 AND id = $2`, matchID, throwID)
	if err != nil {
		return fmt.Errorf("failed to delete throw: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrThrowNotFound
	}
	return nil
}

// ListByMatch returns every throw of a match in running order.
func (r *ThrowRepository) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.Throw, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+throwColumns+`
FROM throws
WHERE match_id = $1
ORDER BY set_number, leg_number, round_number, throw_number, player_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list throws: %w", err)
	}
	defer rows.Close()

	throws := make([]domain.Throw, 0)
	for rows.Next() {
		t, err := scanThrow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan throw: %w", err)
		}
		throws = append(throws, *t)
	}
	return throws, rows.Err()
}

// ListByLeg returns one player's throws within a leg in running order.
func (r *ThrowRepository) ListByLeg(ctx context.Context, matchID uuid.UUID, setNumber, legNumber, playerNumber int) ([]domain.Throw, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+throwColumns+`
FROM throws
WHERE match_id = $1 AND set_number = $2 AND leg_number = $3 AND player_number = $4
ORDER BY round_number, throw_number`, matchID, setNumber, legNumber, playerNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list leg throws: %w", err)
	}
	defer rows.Close()

	throws := make([]domain.Throw, 0)
	for rows.Next() {
		t, err := scanThrow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan throw: %w", err)
		}
		throws = append(throws, *t)
	}
	return throws, rows.Err()
}

func scanThrow(row pgx.Row) (*domain.Throw, error) {
	var t domain.Throw
	err := row.Scan(
		&t.ID, &t.MatchID, &t.PlayerNumber, &t.SetNumber, &t.LegNumber, &t.RoundNumber, &t.ThrowNumber,
		&t.Score, &t.RemainingScore, &t.IsCheckoutAttempt, &t.IsCheckoutSuccess, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
