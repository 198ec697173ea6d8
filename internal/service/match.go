package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

type MatchStore interface {
	Create(ctx context.Context, m *domain.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	Update(ctx context.Context, m *domain.Match) error
	ListRecent(ctx context.Context, limit int) ([]domain.Match, error)
}

type CreateMatchRequest struct {
	Player1       domain.PlayerInfo   `json:"player1"`
	Player2       domain.PlayerInfo   `json:"player2"`
	StartingScore int                 `json:"starting_score"`
	CheckoutRule  domain.CheckoutRule `json:"checkout_rule"`
	Format        domain.MatchFormat  `json:"format"`
	FormatValue   int                 `json:"format_value"`
}

type UpdateMatchRequest struct {
	Status        *domain.MatchStatus  `json:"status,omitempty"`
	WinnerNumber  *int                 `json:"winner_player_number,omitempty"`
	StartingScore *int                 `json:"starting_score,omitempty"`
	CheckoutRule  *domain.CheckoutRule `json:"checkout_rule,omitempty"`
}

// MatchInclude selects the optional embeds of a match read.
type MatchInclude struct {
	Stats bool
	Lock  bool
}

type MatchService struct {
	matches MatchStore
	locks   LockStore
	stats   *StatsService
	logger  zerolog.Logger
}

func NewMatchService(matches MatchStore, locks LockStore, stats *StatsService, logger zerolog.Logger) *MatchService {
	return &MatchService{matches: matches, locks: locks, stats: stats, logger: logger}
}

func (s *MatchService) Create(ctx context.Context, req CreateMatchRequest) (*domain.Match, error) {
	if !req.Player1.Valid() || !req.Player2.Valid() {
		return nil, domain.ValidationError("each player must have exactly one of user_id or guest_name")
	}
	if req.StartingScore <= 1 {
		return nil, domain.ValidationError("starting score must be greater than 1")
	}
	if !req.CheckoutRule.Valid() {
		return nil, domain.ValidationError("unknown checkout rule %q", req.CheckoutRule)
	}
	if !req.Format.Valid() {
		return nil, domain.ValidationError("unknown match format %q", req.Format)
	}
	if req.Format != domain.FormatUnlimited && req.FormatValue <= 0 {
		return nil, domain.ValidationError("format value must be positive for %s", req.Format)
	}

	m := &domain.Match{
		ID:            uuid.New(),
		Player1:       req.Player1,
		Player2:       req.Player2,
		StartingScore: req.StartingScore,
		CheckoutRule:  req.CheckoutRule,
		Format:        req.Format,
		FormatValue:   req.FormatValue,
		CurrentSet:    1,
		CurrentLeg:    1,
		Status:        domain.StatusSetup,
	}

	if err := s.matches.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info().
		Stringer("match_id", m.ID).
		Str("player1", m.Player1.Name).
		Str("player2", m.Player2.Name).
		Int("starting_score", m.StartingScore).
		Msg("match created")
	return m, nil
}

func (s *MatchService) Get(ctx context.Context, id uuid.UUID, include MatchInclude) (*domain.Match, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if include.Stats {
		stats, err := s.stats.ForMatch(ctx, m)
		if err != nil {
			return nil, err
		}
		m.Stats = stats
	}
	if include.Lock {
		lock, err := s.locks.Get(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrLockNotFound) {
			return nil, err
		}
		m.Lock = lock
	}
	return m, nil
}

func (s *MatchService) ListRecent(ctx context.Context, limit int) ([]domain.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.matches.ListRecent(ctx, limit)
}

// Update applies a PATCH: config changes are only allowed during setup,
// status changes go through the lifecycle transition.
func (s *MatchService) Update(ctx context.Context, id uuid.UUID, sessionID string, req UpdateMatchRequest) (*domain.Match, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.StartingScore != nil || req.CheckoutRule != nil {
		if m.Status != domain.StatusSetup {
			return nil, domain.ValidationError("match config can only change during setup")
		}
		if req.StartingScore != nil {
			if *req.StartingScore <= 1 {
				return nil, domain.ValidationError("starting score must be greater than 1")
			}
			m.StartingScore = *req.StartingScore
		}
		if req.CheckoutRule != nil {
			if !req.CheckoutRule.Valid() {
				return nil, domain.ValidationError("unknown checkout rule %q", *req.CheckoutRule)
			}
			m.CheckoutRule = *req.CheckoutRule
		}
		if err := s.matches.Update(ctx, m); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		return s.transition(ctx, m, sessionID, *req.Status, req.WinnerNumber)
	}
	return m, nil
}

// Start moves a setup match to in_progress. The caller must already
// hold the match lock; starting stamps started_at on first entry.
func (s *MatchService) Start(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Match, error) {
	return s.transitionByID(ctx, id, sessionID, domain.StatusInProgress, nil)
}

func (s *MatchService) Pause(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Match, error) {
	return s.transitionByID(ctx, id, sessionID, domain.StatusPaused, nil)
}

// Resume re-validates the caller's lock and returns play to
// in_progress.
func (s *MatchService) Resume(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Match, error) {
	return s.transitionByID(ctx, id, sessionID, domain.StatusInProgress, nil)
}

// End completes the match with the given winner.
func (s *MatchService) End(ctx context.Context, id uuid.UUID, sessionID string, winner int) (*domain.Match, error) {
	return s.transitionByID(ctx, id, sessionID, domain.StatusCompleted, &winner)
}

// Cancel aborts the match from any non-terminal state.
func (s *MatchService) Cancel(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Match, error) {
	return s.transitionByID(ctx, id, sessionID, domain.StatusCancelled, nil)
}

func (s *MatchService) transitionByID(ctx context.Context, id uuid.UUID, sessionID string, to domain.MatchStatus, winner *int) (*domain.Match, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, m, sessionID, to, winner)
}

func (s *MatchService) transition(ctx context.Context, m *domain.Match, sessionID string, to domain.MatchStatus, winner *int) (*domain.Match, error) {
	if !to.Valid() {
		return nil, domain.ValidationError("unknown status %q", to)
	}
	if m.Status.Terminal() {
		return nil, domain.ErrMatchFinished
	}
	if !m.Status.CanTransition(to) {
		return nil, &domain.TransitionError{From: m.Status, To: to}
	}

	// Live play requires the acting session to hold the lock.
	if to == domain.StatusInProgress {
		if err := s.requireLock(ctx, m.ID, sessionID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	switch to {
	case domain.StatusInProgress:
		if m.StartedAt == nil {
			m.StartedAt = &now
		}
	case domain.StatusCompleted:
		if winner == nil {
			return nil, domain.ValidationError("completing a match requires a winner")
		}
		if *winner != 1 && *winner != 2 {
			return nil, domain.ValidationError("winner must be player 1 or 2")
		}
		m.WinnerPlayerNumber = winner
		m.CompletedAt = &now
		if m.StartedAt != nil {
			secs := int(now.Sub(*m.StartedAt).Seconds())
			m.DurationSeconds = &secs
		}
	}

	from := m.Status
	m.Status = to
	if err := s.matches.Update(ctx, m); err != nil {
		return nil, err
	}

	// Terminal states shed the lock. Failure to release must never
	// block the transition itself, so it is logged and swallowed.
	if to.Terminal() && sessionID != "" {
		if err := s.locks.Release(ctx, m.ID, sessionID); err != nil {
			s.logger.Warn().Err(err).Stringer("match_id", m.ID).Msg("failed to release lock after terminal transition")
		}
	}

	s.logger.Info().
		Stringer("match_id", m.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("match status changed")
	return m, nil
}

func (s *MatchService) requireLock(ctx context.Context, matchID uuid.UUID, sessionID string) error {
	lock, err := s.locks.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotFound) {
			return domain.ErrNotLockOwner
		}
		return err
	}
	if lock.IsExpired(time.Now()) || !lock.OwnedBy(sessionID) {
		return domain.ErrNotLockOwner
	}
	return nil
}
