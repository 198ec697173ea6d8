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
	"github.com/adrianmirek/darterassistant-sub002/internal/scoring"
)

type ThrowStore interface {
	Insert(ctx context.Context, t *domain.Throw) error
	InsertBatch(ctx context.Context, throws []domain.Throw) error
	GetByID(ctx context.Context, matchID uuid.UUID, throwID string) (*domain.Throw, error)
	Update(ctx context.Context, t *domain.Throw) error
	Delete(ctx context.Context, matchID uuid.UUID, throwID string) error
	ListByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.Throw, error)
	ListByLeg(ctx context.Context, matchID uuid.UUID, setNumber, legNumber, playerNumber int) ([]domain.Throw, error)
}

// RecordThrowRequest is one three-dart visit. DartsUsed defaults to 3;
// set and leg default to the match's current position.
type RecordThrowRequest struct {
	PlayerNumber int `json:"player_number"`
	SetNumber    int `json:"set_number,omitempty"`
	LegNumber    int `json:"leg_number,omitempty"`
	RoundNumber  int `json:"round_number"`
	DartsUsed    int `json:"darts_used,omitempty"`
	Score        int `json:"score"`
}

type UpdateThrowRequest struct {
	Score *int `json:"score,omitempty"`
}

type ThrowService struct {
	matches MatchStore
	throws  ThrowStore
	locks   LockStore
	lockTTL time.Duration
	logger  zerolog.Logger
}

func NewThrowService(matches MatchStore, throws ThrowStore, locks LockStore, cfg *config.Config, logger zerolog.Logger) *ThrowService {
	return &ThrowService{
		matches: matches,
		throws:  throws,
		locks:   locks,
		lockTTL: cfg.LockTTL,
		logger:  logger,
	}
}

// Record persists one visit, computing the remaining score server-side
// from the previous visit in the leg. Busts keep the previous
// remaining; a winning visit closes the leg.
func (s *ThrowService) Record(ctx context.Context, matchID uuid.UUID, sessionID string, req RecordThrowRequest) (*domain.Throw, error) {
	m, err := s.writableMatch(ctx, matchID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validateThrowRequest(&req, m); err != nil {
		return nil, err
	}

	legThrows, err := s.throws.ListByLeg(ctx, matchID, req.SetNumber, req.LegNumber, req.PlayerNumber)
	if err != nil {
		return nil, err
	}

	current := m.StartingScore
	if len(legThrows) > 0 {
		current = legThrows[len(legThrows)-1].RemainingScore
	}

	t := buildThrow(m, req, current)
	if err := s.throws.Insert(ctx, t); err != nil {
		return nil, err
	}

	s.touchLock(ctx, matchID, sessionID)

	if t.IsCheckoutSuccess {
		if err := s.closeLeg(ctx, m, sessionID, t.PlayerNumber); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// RecordBatch persists up to MaxBatchThrows visits in one transaction,
// computing remainings sequentially across the batch.
func (s *ThrowService) RecordBatch(ctx context.Context, matchID uuid.UUID, sessionID string, reqs []RecordThrowRequest) ([]domain.Throw, error) {
	if len(reqs) == 0 {
		return nil, domain.ValidationError("batch must contain at least one throw")
	}
	if len(reqs) > constants.MaxBatchThrows {
		return nil, domain.ValidationError("batch may contain at most %d throws", constants.MaxBatchThrows)
	}

	m, err := s.writableMatch(ctx, matchID, sessionID)
	if err != nil {
		return nil, err
	}

	type position struct {
		player, set, leg int
	}
	remaining := make(map[position]int)

	throws := make([]domain.Throw, 0, len(reqs))
	var legWinners []int
	for i := range reqs {
		req := reqs[i]
		if err := validateThrowRequest(&req, m); err != nil {
			return nil, err
		}

		pos := position{req.PlayerNumber, req.SetNumber, req.LegNumber}
		current, seen := remaining[pos]
		if !seen {
			legThrows, err := s.throws.ListByLeg(ctx, matchID, req.SetNumber, req.LegNumber, req.PlayerNumber)
			if err != nil {
				return nil, err
			}
			current = m.StartingScore
			if len(legThrows) > 0 {
				current = legThrows[len(legThrows)-1].RemainingScore
			}
		}

		t := buildThrow(m, req, current)
		remaining[pos] = t.RemainingScore
		if t.IsCheckoutSuccess {
			legWinners = append(legWinners, t.PlayerNumber)
		}
		throws = append(throws, *t)
	}

	if err := s.throws.InsertBatch(ctx, throws); err != nil {
		return nil, err
	}

	s.touchLock(ctx, matchID, sessionID)

	for _, winner := range legWinners {
		if m.Status.Terminal() {
			break
		}
		if err := s.closeLeg(ctx, m, sessionID, winner); err != nil {
			return nil, err
		}
	}
	return throws, nil
}

// Correct rewrites a visit's score and recomputes every later visit of
// the same player in the leg, exactly as a live bust would have.
func (s *ThrowService) Correct(ctx context.Context, matchID uuid.UUID, sessionID, throwID string, req UpdateThrowRequest) (*domain.Throw, error) {
	m, err := s.writableMatch(ctx, matchID, sessionID)
	if err != nil {
		return nil, err
	}
	if req.Score == nil {
		return nil, domain.ValidationError("score is required")
	}
	if !scoring.ValidScore(*req.Score) {
		return nil, domain.ValidationError("score must be between 0 and %d", constants.MaxThrowScore)
	}

	t, err := s.throws.GetByID(ctx, matchID, throwID)
	if err != nil {
		return nil, err
	}

	t.Score = *req.Score
	updated, err := s.recalculateLeg(ctx, m, sessionID, t, false)
	if err != nil {
		return nil, err
	}

	s.touchLock(ctx, matchID, sessionID)
	return updated, nil
}

// Undo removes a visit and recomputes the rest of the leg.
func (s *ThrowService) Undo(ctx context.Context, matchID uuid.UUID, sessionID, throwID string) error {
	m, err := s.writableMatch(ctx, matchID, sessionID)
	if err != nil {
		return err
	}

	t, err := s.throws.GetByID(ctx, matchID, throwID)
	if err != nil {
		return err
	}

	if err := s.throws.Delete(ctx, matchID, throwID); err != nil {
		return err
	}
	if _, err := s.recalculateLeg(ctx, m, sessionID, t, true); err != nil {
		return err
	}

	s.touchLock(ctx, matchID, sessionID)
	return nil
}

// writableMatch loads the match and checks the session may mutate it:
// play must be running and the session must hold a live lock.
func (s *ThrowService) writableMatch(ctx context.Context, matchID uuid.UUID, sessionID string) (*domain.Match, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status.Terminal() {
		return nil, domain.ErrMatchFinished
	}
	if m.Status != domain.StatusInProgress {
		return nil, domain.ValidationError("throws can only be recorded while the match is in progress")
	}

	lock, err := s.locks.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotFound) {
			return nil, domain.ErrNotLockOwner
		}
		return nil, err
	}
	if lock.IsExpired(time.Now()) || !lock.OwnedBy(sessionID) {
		return nil, domain.ErrNotLockOwner
	}
	return m, nil
}

func validateThrowRequest(req *RecordThrowRequest, m *domain.Match) error {
	if req.PlayerNumber != 1 && req.PlayerNumber != 2 {
		return domain.ValidationError("player_number must be 1 or 2")
	}
	if !scoring.ValidScore(req.Score) {
		return domain.ValidationError("score must be between 0 and %d", constants.MaxThrowScore)
	}
	if req.RoundNumber < 1 {
		return domain.ValidationError("round_number must be positive")
	}
	if req.DartsUsed == 0 {
		req.DartsUsed = 3
	}
	if req.DartsUsed < 1 || req.DartsUsed > 3 {
		return domain.ValidationError("darts_used must be between 1 and 3")
	}
	if req.SetNumber == 0 {
		req.SetNumber = m.CurrentSet
	}
	if req.LegNumber == 0 {
		req.LegNumber = m.CurrentLeg
	}
	if req.SetNumber < 1 || req.LegNumber < 1 {
		return domain.ValidationError("set_number and leg_number must be positive")
	}
	return nil
}

func buildThrow(m *domain.Match, req RecordThrowRequest, current int) *domain.Throw {
	t := &domain.Throw{
		MatchID:           m.ID,
		PlayerNumber:      req.PlayerNumber,
		SetNumber:         req.SetNumber,
		LegNumber:         req.LegNumber,
		RoundNumber:       req.RoundNumber,
		ThrowNumber:       req.DartsUsed,
		Score:             req.Score,
		IsCheckoutAttempt: scoring.IsCheckoutAttempt(current),
	}

	switch {
	case scoring.IsBust(current, req.Score):
		t.RemainingScore = current
	case scoring.IsWinningThrow(current, req.Score):
		t.RemainingScore = 0
		t.IsCheckoutSuccess = true
	default:
		t.RemainingScore = current - req.Score
	}
	return t
}

// recalculateLeg replays one player's leg through the to-go arithmetic
// after a correction or undo and persists every visit that changed.
// When the replay flips the leg outcome the bookkeeping of closeLeg is
// reconciled: a checkout that no longer stands reopens the leg, a new
// one closes it. The changed throw's own row is returned unless it was
// deleted.
func (s *ThrowService) recalculateLeg(ctx context.Context, m *domain.Match, sessionID string, changed *domain.Throw, deleted bool) (*domain.Throw, error) {
	legThrows, err := s.throws.ListByLeg(ctx, m.ID, changed.SetNumber, changed.LegNumber, changed.PlayerNumber)
	if err != nil {
		return nil, err
	}

	wonBefore := deleted && changed.IsCheckoutSuccess
	for i := range legThrows {
		if legThrows[i].IsCheckoutSuccess {
			wonBefore = true
		}
	}

	from := 0
	if !deleted {
		for i := range legThrows {
			if legThrows[i].ID == changed.ID {
				legThrows[i].Score = changed.Score
				from = i
				break
			}
		}
	}

	rounds := make([]scoring.Round, len(legThrows))
	for i, t := range legThrows {
		rounds[i] = scoring.Round{Scored: t.Score, ToGo: t.RemainingScore}
	}
	rounds = scoring.RecalculateToGo(rounds, from, m.StartingScore)

	var result *domain.Throw
	wonAfter := false
	prev := m.StartingScore
	for i := range legThrows {
		if i > 0 {
			prev = rounds[i-1].ToGo
		}

		t := &legThrows[i]
		attempt := scoring.IsCheckoutAttempt(prev)
		success := prev > 0 && rounds[i].ToGo == 0
		if success {
			wonAfter = true
		}

		if t.RemainingScore != rounds[i].ToGo || t.IsCheckoutAttempt != attempt || t.IsCheckoutSuccess != success || (i == from && !deleted) {
			t.RemainingScore = rounds[i].ToGo
			t.IsCheckoutAttempt = attempt
			t.IsCheckoutSuccess = success
			if err := s.throws.Update(ctx, t); err != nil {
				return nil, err
			}
		}
		if t.ID == changed.ID {
			result = t
		}
	}

	switch {
	case wonBefore && !wonAfter:
		if err := s.reopenLeg(ctx, m, changed.PlayerNumber); err != nil {
			return nil, err
		}
	case !wonBefore && wonAfter:
		if err := s.closeLeg(ctx, m, sessionID, changed.PlayerNumber); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// reopenLeg reverts the bookkeeping of closeLeg after a correction or
// undo takes a won leg back above zero.
func (s *ThrowService) reopenLeg(ctx context.Context, m *domain.Match, winner int) error {
	if winner == 1 && m.Player1LegsWon > 0 {
		m.Player1LegsWon--
	}
	if winner == 2 && m.Player2LegsWon > 0 {
		m.Player2LegsWon--
	}
	if m.CurrentLeg > 1 {
		m.CurrentLeg--
	}

	if err := s.matches.Update(ctx, m); err != nil {
		return err
	}

	s.logger.Info().
		Stringer("match_id", m.ID).
		Int("player", winner).
		Int("p1_legs", m.Player1LegsWon).
		Int("p2_legs", m.Player2LegsWon).
		Msg("leg reopened")
	return nil
}

// closeLeg books a won leg and, when the format is satisfied, completes
// the match. The lock release on completion is best effort.
func (s *ThrowService) closeLeg(ctx context.Context, m *domain.Match, sessionID string, winner int) error {
	if winner == 1 {
		m.Player1LegsWon++
	} else {
		m.Player2LegsWon++
	}
	m.CurrentLeg++

	if need := legsNeeded(m); need > 0 {
		won := m.Player1LegsWon
		if winner == 2 {
			won = m.Player2LegsWon
		}
		if won >= need {
			now := time.Now().UTC()
			m.Status = domain.StatusCompleted
			m.WinnerPlayerNumber = &winner
			m.CompletedAt = &now
			if m.StartedAt != nil {
				secs := int(now.Sub(*m.StartedAt).Seconds())
				m.DurationSeconds = &secs
			}
		}
	}

	if err := s.matches.Update(ctx, m); err != nil {
		return err
	}

	if m.Status.Terminal() {
		if err := s.locks.Release(ctx, m.ID, sessionID); err != nil {
			s.logger.Warn().Err(err).Stringer("match_id", m.ID).Msg("failed to release lock after match completion")
		}
	}

	s.logger.Info().
		Stringer("match_id", m.ID).
		Int("winner", winner).
		Int("p1_legs", m.Player1LegsWon).
		Int("p2_legs", m.Player2LegsWon).
		Msg("leg closed")
	return nil
}

func legsNeeded(m *domain.Match) int {
	switch m.Format {
	case domain.FormatFirstTo:
		return m.FormatValue
	case domain.FormatBestOf:
		return m.FormatValue/2 + 1
	default:
		return 0
	}
}

func (s *ThrowService) touchLock(ctx context.Context, matchID uuid.UUID, sessionID string) {
	if err := s.locks.Touch(ctx, matchID, sessionID, s.lockTTL); err != nil {
		s.logger.Warn().Err(err).Stringer("match_id", matchID).Msg("failed to touch lock")
	}
}
