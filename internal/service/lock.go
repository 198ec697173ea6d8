package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adrianmirek/darterassistant-sub002/internal/config"
	"github.com/adrianmirek/darterassistant-sub002/internal/constants"
	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

// LockStore is the persistence contract for match locks. Its Acquire
// must be atomic with respect to concurrent acquires for one match.
type LockStore interface {
	Acquire(ctx context.Context, lock *domain.MatchLock, ttl time.Duration) (*domain.MatchLock, error)
	Extend(ctx context.Context, matchID uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error)
	Touch(ctx context.Context, matchID uuid.UUID, sessionID string, ttl time.Duration) error
	Release(ctx context.Context, matchID uuid.UUID, sessionID string) error
	Get(ctx context.Context, matchID uuid.UUID) (*domain.MatchLock, error)
}

type AcquireLockRequest struct {
	DeviceName string `json:"device_name"`
	DeviceInfo string `json:"device_info"`
	AutoExtend bool   `json:"auto_extend"`
}

// LockStatus answers the three read-only questions about a match lock:
// does one exist, is it expired, and does the asking session own it.
type LockStatus struct {
	Locked  bool              `json:"locked"`
	Expired bool              `json:"expired"`
	IsOwner bool              `json:"is_owner"`
	Lock    *domain.MatchLock `json:"lock,omitempty"`
}

type LockService struct {
	locks  LockStore
	ttl    time.Duration
	logger zerolog.Logger
}

func NewLockService(locks LockStore, cfg *config.Config, logger zerolog.Logger) *LockService {
	return &LockService{locks: locks, ttl: cfg.LockTTL, logger: logger}
}

func (s *LockService) Acquire(ctx context.Context, matchID uuid.UUID, sessionID string, req AcquireLockRequest) (*domain.MatchLock, error) {
	if sessionID == "" {
		return nil, domain.ValidationError("session id is required")
	}

	lock, err := s.locks.Acquire(ctx, &domain.MatchLock{
		MatchID:    matchID,
		SessionID:  sessionID,
		DeviceName: req.DeviceName,
		DeviceInfo: req.DeviceInfo,
		AutoExtend: req.AutoExtend,
	}, s.ttl)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Stringer("match_id", matchID).
		Str("session_id", sessionID).
		Time("expires_at", lock.ExpiresAt).
		Msg("lock acquired")
	return lock, nil
}

func (s *LockService) Extend(ctx context.Context, matchID uuid.UUID, sessionID string, d time.Duration) (*domain.MatchLock, error) {
	if d < constants.MinLockExtension || d > constants.MaxLockExtension {
		return nil, domain.ValidationError("extension must be between %s and %s", constants.MinLockExtension, constants.MaxLockExtension)
	}
	return s.locks.Extend(ctx, matchID, sessionID, d)
}

func (s *LockService) Release(ctx context.Context, matchID uuid.UUID, sessionID string) error {
	return s.locks.Release(ctx, matchID, sessionID)
}

func (s *LockService) Status(ctx context.Context, matchID uuid.UUID, sessionID string) (*LockStatus, error) {
	lock, err := s.locks.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotFound) {
			return &LockStatus{}, nil
		}
		return nil, err
	}

	return &LockStatus{
		Locked:  true,
		Expired: lock.IsExpired(time.Now()),
		IsOwner: lock.OwnedBy(sessionID),
		Lock:    lock,
	}, nil
}
