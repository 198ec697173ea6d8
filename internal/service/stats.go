package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

// StatsService derives per-player aggregates from the throw log. Stats
// are never stored; every read recomputes them, so corrections and
// undos are reflected immediately.
type StatsService struct {
	matches MatchStore
	throws  ThrowStore
	logger  zerolog.Logger
}

func NewStatsService(matches MatchStore, throws ThrowStore, logger zerolog.Logger) *StatsService {
	return &StatsService{matches: matches, throws: throws, logger: logger}
}

// ForMatchID returns aggregates for one or both players of a match.
func (s *StatsService) ForMatchID(ctx context.Context, matchID uuid.UUID, playerNumber *int) ([]domain.PlayerStats, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if playerNumber == nil {
		return s.ForMatch(ctx, m)
	}
	stats, err := s.ForPlayer(ctx, m, *playerNumber)
	if err != nil {
		return nil, err
	}
	return []domain.PlayerStats{*stats}, nil
}

func (s *StatsService) ForMatch(ctx context.Context, m *domain.Match) ([]domain.PlayerStats, error) {
	throws, err := s.throws.ListByMatch(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return []domain.PlayerStats{
		aggregate(m, throws, 1),
		aggregate(m, throws, 2),
	}, nil
}

func (s *StatsService) ForPlayer(ctx context.Context, m *domain.Match, playerNumber int) (*domain.PlayerStats, error) {
	if playerNumber != 1 && playerNumber != 2 {
		return nil, domain.ValidationError("player_number must be 1 or 2")
	}
	throws, err := s.throws.ListByMatch(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	stats := aggregate(m, throws, playerNumber)
	return &stats, nil
}

type legKey struct {
	set int
	leg int
}

// aggregate walks one player's visits in running order. A visit's
// effective score is the drop in remaining, which zeroes out busts
// without needing a stored bust flag.
func aggregate(m *domain.Match, throws []domain.Throw, playerNumber int) domain.PlayerStats {
	stats := domain.PlayerStats{MatchID: m.ID, PlayerNumber: playerNumber}

	var totalScored, first9Scored, first9Darts int
	legRemaining := map[legKey]int{}
	legVisits := map[legKey]int{}
	legDarts := map[legKey]int{}

	for _, t := range throws {
		if t.PlayerNumber != playerNumber {
			continue
		}
		key := legKey{t.SetNumber, t.LegNumber}
		prev, seen := legRemaining[key]
		if !seen {
			prev = m.StartingScore
		}

		effective := prev - t.RemainingScore
		legRemaining[key] = t.RemainingScore
		legVisits[key]++
		legDarts[key] += t.ThrowNumber

		stats.DartsThrown += t.ThrowNumber
		totalScored += effective
		if legVisits[key] <= 3 {
			first9Scored += effective
			first9Darts += t.ThrowNumber
		}

		switch {
		case effective == 180:
			stats.Scores180++
			stats.Scores140Plus++
			stats.ScoresHundredPlus++
			stats.ScoresSixtyPlus++
		case effective >= 140:
			stats.Scores140Plus++
			stats.ScoresHundredPlus++
			stats.ScoresSixtyPlus++
		case effective >= 100:
			stats.ScoresHundredPlus++
			stats.ScoresSixtyPlus++
		case effective >= 60:
			stats.ScoresSixtyPlus++
		}

		if effective > stats.HighestScore {
			stats.HighestScore = effective
		}
		if t.IsCheckoutAttempt {
			stats.CheckoutAttempts++
		}
		if t.IsCheckoutSuccess {
			stats.CheckoutHits++
			if effective > stats.HighestCheckout {
				stats.HighestCheckout = effective
			}
		}
	}

	if stats.DartsThrown > 0 {
		stats.ThreeDartAverage = float64(totalScored) / float64(stats.DartsThrown) * 3
	}
	if first9Darts > 0 {
		stats.FirstNineAverage = float64(first9Scored) / float64(first9Darts) * 3
	}
	if stats.CheckoutAttempts > 0 {
		stats.CheckoutPercentage = float64(stats.CheckoutHits) / float64(stats.CheckoutAttempts) * 100
	}

	// Best and worst leg only count legs the player actually won.
	for key, remaining := range legRemaining {
		if remaining != 0 {
			continue
		}
		darts := legDarts[key]
		if stats.BestLegDarts == 0 || darts < stats.BestLegDarts {
			stats.BestLegDarts = darts
		}
		if darts > stats.WorstLegDarts {
			stats.WorstLegDarts = darts
		}
	}

	return stats
}
