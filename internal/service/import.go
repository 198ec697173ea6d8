package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adrianmirek/darterassistant-sub002/internal/constants"
	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
	"github.com/adrianmirek/darterassistant-sub002/internal/nakka"
	"github.com/adrianmirek/darterassistant-sub002/internal/scoring"
)

// NakkaSource abstracts the scoreboard site for tests.
type NakkaSource interface {
	FetchTournament(ctx context.Context, tournamentID string) ([]byte, error)
	FetchMatch(ctx context.Context, tournamentID, matchID string) ([]byte, error)
}

// ImportService pulls finished matches from a Nakka tournament into
// the local store as completed matches with their full throw logs.
type ImportService struct {
	source  NakkaSource
	matches MatchStore
	throws  ThrowStore
	logger  zerolog.Logger
}

func NewImportService(source NakkaSource, matches MatchStore, throws ThrowStore, logger zerolog.Logger) *ImportService {
	return &ImportService{source: source, matches: matches, throws: throws, logger: logger}
}

type ImportResult struct {
	Tournament string         `json:"tournament"`
	Imported   []domain.Match `json:"imported"`
	Failed     []string       `json:"failed,omitempty"`
}

// ImportTournament fetches the overview, then every match page
// concurrently, and persists whatever parses cleanly. A single broken
// match page does not sink the rest of the import.
func (s *ImportService) ImportTournament(ctx context.Context, tournamentID string) (*ImportResult, error) {
	if tournamentID == "" {
		return nil, domain.ValidationError("tournament id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	page, err := s.source.FetchTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tournament %s: %w", tournamentID, err)
	}
	tour, err := nakka.ParseTournament(page)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Tournament: tour.Title}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, summary := range tour.Matches {
		summary := summary
		g.Go(func() error {
			m, err := s.importMatch(gCtx, tournamentID, summary)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().Err(err).Str("nakka_match_id", summary.ID).Msg("failed to import match")
				result.Failed = append(result.Failed, summary.ID)
				return nil
			}
			result.Imported = append(result.Imported, *m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tournament_id", tournamentID).
		Str("title", tour.Title).
		Int("imported", len(result.Imported)).
		Int("failed", len(result.Failed)).
		Msg("tournament import finished")
	return result, nil
}

func (s *ImportService) importMatch(ctx context.Context, tournamentID string, summary nakka.MatchSummary) (*domain.Match, error) {
	page, err := s.source.FetchMatch(ctx, tournamentID, summary.ID)
	if err != nil {
		return nil, err
	}
	detail, err := nakka.ParseMatch(page)
	if err != nil {
		return nil, err
	}

	m, throws := mapImportedMatch(detail, summary)
	if err := s.matches.Create(ctx, m); err != nil {
		return nil, err
	}
	for i := range throws {
		throws[i].MatchID = m.ID
	}
	if err := s.throws.InsertBatch(ctx, throws); err != nil {
		return nil, err
	}
	return m, nil
}

// mapImportedMatch turns a scraped scoreboard into a completed match
// and its throw log. Scraped to-go values are not trusted: every leg
// is replayed through the scoring arithmetic.
func mapImportedMatch(detail *nakka.MatchDetail, summary nakka.MatchSummary) (*domain.Match, []domain.Throw) {
	p1 := summary.Player1
	if p1 == "" {
		p1 = detail.Player1
	}
	p2 := summary.Player2
	if p2 == "" {
		p2 = detail.Player2
	}

	now := time.Now().UTC()
	m := &domain.Match{
		ID:            uuid.New(),
		Player1:       domain.PlayerInfo{GuestName: &p1, Name: p1},
		Player2:       domain.PlayerInfo{GuestName: &p2, Name: p2},
		StartingScore: detail.StartingScore,
		CheckoutRule:  domain.CheckoutDouble,
		Format:        domain.FormatFirstTo,
		FormatValue:   maxInt(summary.Player1Legs, summary.Player2Legs),
		CurrentSet:    1,
		CurrentLeg:    len(detail.Legs),
		Status:        domain.StatusCompleted,
		CompletedAt:   &now,
	}

	var throws []domain.Throw
	for _, leg := range detail.Legs {
		p1Rounds := make([]scoring.Round, len(leg.Rounds))
		p2Rounds := make([]scoring.Round, len(leg.Rounds))
		for i, r := range leg.Rounds {
			p1Rounds[i] = scoring.Round{Scored: r.Player1Score}
			p2Rounds[i] = scoring.Round{Scored: r.Player2Score}
		}
		p1Rounds = scoring.RecalculateToGo(p1Rounds, 0, detail.StartingScore)
		p2Rounds = scoring.RecalculateToGo(p2Rounds, 0, detail.StartingScore)

		throws = append(throws, legThrows(m, leg, 1, p1Rounds)...)
		throws = append(throws, legThrows(m, leg, 2, p2Rounds)...)

		if won(p1Rounds) {
			m.Player1LegsWon++
		}
		if won(p2Rounds) {
			m.Player2LegsWon++
		}
	}

	winner := 1
	if m.Player2LegsWon > m.Player1LegsWon {
		winner = 2
	}
	m.WinnerPlayerNumber = &winner
	return m, throws
}

func legThrows(m *domain.Match, leg nakka.Leg, playerNumber int, rounds []scoring.Round) []domain.Throw {
	throws := make([]domain.Throw, 0, len(rounds))
	prev := m.StartingScore
	for i, r := range rounds {
		throws = append(throws, domain.Throw{
			PlayerNumber:      playerNumber,
			SetNumber:         1,
			LegNumber:         leg.Number,
			RoundNumber:       leg.Rounds[i].Number,
			ThrowNumber:       3,
			Score:             r.Scored,
			RemainingScore:    r.ToGo,
			IsCheckoutAttempt: scoring.IsCheckoutAttempt(prev),
			IsCheckoutSuccess: prev > 0 && r.ToGo == 0,
		})
		prev = r.ToGo
		if prev == 0 {
			break
		}
	}
	return throws
}

func won(rounds []scoring.Round) bool {
	return len(rounds) > 0 && rounds[len(rounds)-1].ToGo == 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
