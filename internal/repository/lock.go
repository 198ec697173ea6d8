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

// LockRepository owns the compare-and-swap that guarantees at most one
// non-expired lock per match. The hosted predecessor did this in a
// stored procedure; here it is a single conditional upsert, so two
// concurrent acquires still produce exactly one winner.
type LockRepository struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

func NewLockRepository(db *pgxpool.Pool, logger zerolog.Logger) *LockRepository {
	return &LockRepository{db: db, logger: logger}
}

const lockColumns = `
	match_id, session_id, device_name, device_info, auto_extend,
	acquired_at, expires_at, last_activity_at`

// Acquire claims the match lock for sessionID. The upsert only replaces
// an existing row when it is expired or already owned by the same
// session; otherwise zero rows come back and the current holder is
// surfaced as a LockConflictError.
func (r *LockRepository) Acquire(ctx context.Context, lock *domain.MatchLock, ttl time.Duration) (*domain.MatchLock, error) {
	// The holder can disappear between a lost upsert and the conflict
	// read (expiry takeover, explicit release). One retry covers it.
	for attempt := 0; attempt < 2; attempt++ {
		row := r.db.QueryRow(ctx, `
INSERT INTO match_locks (match_id, session_id, device_name, device_info, auto_extend, acquired_at, expires_at, last_activity_at)
VALUES ($1, $2, $3, $4, $5, now(), now() + make_interval(secs => $6), now())
ON CONFLICT (match_id) DO UPDATE SET
	session_id       = EXCLUDED.session_id,
	device_name      = EXCLUDED.device_name,
	device_info      = EXCLUDED.device_info,
	auto_extend      = EXCLUDED.auto_extend,
	acquired_at      = CASE WHEN match_locks.session_id = EXCLUDED.session_id THEN match_locks.acquired_at ELSE now() END,
	expires_at       = EXCLUDED.expires_at,
	last_activity_at = now()
WHERE match_locks.expires_at <= now() OR match_locks.session_id = EXCLUDED.session_id
RETURNING `+lockColumns,
			lock.MatchID, lock.SessionID, lock.DeviceName, lock.DeviceInfo, lock.AutoExtend, ttl.Seconds(),
		)

		acquired, err := scanLock(row)
		if err == nil {
			return acquired, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		holder, err := r.Get(ctx, lock.MatchID)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotFound) {
				r.logger.Debug().Stringer("match_id", lock.MatchID).Msg("lock holder vanished during acquire, retrying")
				continue
			}
			return nil, err
		}
		return nil, &domain.LockConflictError{Holder: holder}
	}

	return nil, fmt.Errorf("failed to acquire lock for match %s", lock.MatchID)
}

// Extend renews the expiry of a lock the session still holds.
func (r *LockRepository) Extend(ctx context.Context, matchID uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error) {
	row := r.db.QueryRow(ctx, `
UPDATE match_locks SET
	expires_at       = now() + make_interval(secs => $3),
	last_activity_at = now()
WHERE match_id = $1 AND session_id = $2 AND expires_at > now()
RETURNING `+lockColumns,
		matchID, sessionID, d.Seconds(),
	)

	lock, err := scanLock(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to extend lock: %w", err)
	}
	return lock, nil
}

// Touch bumps last activity and, for auto-extending locks, pushes the
// expiry out again. Used on every throw mutation by the holder.
func (r *LockRepository) Touch(ctx context.Context, matchID uuid.UUID, sessionID string, ttl time.Duration) error {
	_, err := r.db.Exec(ctx, `
UPDATE match_locks SET
	last_activity_at = now(),
	expires_at       = CASE WHEN auto_extend THEN greatest(expires_at, now() + make_interval(secs => $3)) ELSE expires_at END
WHERE match_id = $1 AND session_id = $2 AND expires_at > now()`,
		matchID, sessionID, ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to touch lock: %w", err)
	}
	return nil
}

// Release removes the lock scoped to the match+session pair. Releasing
// a lock the session does not hold deletes nothing and is not an error.
func (r *LockRepository) Release(ctx context.Context, matchID uuid.UUID, sessionID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM match_locks WHERE match_id = $1 AND session_id = $2`, matchID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (r *LockRepository) Get(ctx context.Context, matchID uuid.UUID) (*domain.MatchLock, error) {
	row := r.db.QueryRow(ctx, `SELECT `+lockColumns+` FROM match_locks WHERE match_id = $1`, matchID)

	lock, err := scanLock(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to load lock: %w", err)
	}
	return lock, nil
}

func scanLock(row pgx.Row) (*domain.MatchLock, error) {
	var l domain.MatchLock
	err := row.Scan(
		&l.MatchID, &l.SessionID, &l.DeviceName, &l.DeviceInfo, &l.AutoExtend,
		&l.AcquiredAt, &l.ExpiresAt, &l.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
