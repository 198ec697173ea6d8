package domain

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	StatusSetup      MatchStatus = "setup"
	StatusInProgress MatchStatus = "in_progress"
	StatusPaused     MatchStatus = "paused"
	StatusCompleted  MatchStatus = "completed"
	StatusCancelled  MatchStatus = "cancelled"
)

type CheckoutRule string

const (
	CheckoutStraight CheckoutRule = "straight"
	CheckoutDouble   CheckoutRule = "double_out"
	CheckoutMaster   CheckoutRule = "master_out"
)

type MatchFormat string

const (
	FormatFirstTo   MatchFormat = "first_to"
	FormatBestOf    MatchFormat = "best_of"
	FormatUnlimited MatchFormat = "unlimited"
)

// PlayerInfo identifies one side of a match: either a registered user
// or a guest name, never both.
type PlayerInfo struct {
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	GuestName *string    `json:"guest_name,omitempty"`
	Name      string     `json:"name"`
}

func (p PlayerInfo) Valid() bool {
	return (p.UserID != nil) != (p.GuestName != nil)
}

type Match struct {
	ID                 uuid.UUID    `json:"id"`
	Player1            PlayerInfo   `json:"player1"`
	Player2            PlayerInfo   `json:"player2"`
	StartingScore      int          `json:"starting_score"`
	CheckoutRule       CheckoutRule `json:"checkout_rule"`
	Format             MatchFormat  `json:"format"`
	FormatValue        int          `json:"format_value"`
	CurrentSet         int          `json:"current_set"`
	CurrentLeg         int          `json:"current_leg"`
	Player1LegsWon     int          `json:"player1_legs_won"`
	Player2LegsWon     int          `json:"player2_legs_won"`
	Player1SetsWon     int          `json:"player1_sets_won"`
	Player2SetsWon     int          `json:"player2_sets_won"`
	Status             MatchStatus  `json:"status"`
	WinnerPlayerNumber *int         `json:"winner_player_number,omitempty"`
	StartedAt          *time.Time   `json:"started_at,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	DurationSeconds    *int         `json:"duration_seconds,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`

	// Optional embeds, populated on request.
	Stats []PlayerStats `json:"stats,omitempty"`
	Lock  *MatchLock    `json:"lock,omitempty"`
}

type Throw struct {
	ID                string    `json:"id"`
	MatchID           uuid.UUID `json:"match_id"`
	PlayerNumber      int       `json:"player_number"`
	SetNumber         int       `json:"set_number"`
	LegNumber         int       `json:"leg_number"`
	RoundNumber       int       `json:"round_number"`
	ThrowNumber       int       `json:"throw_number"`
	Score             int       `json:"score"`
	RemainingScore    int       `json:"remaining_score"`
	IsCheckoutAttempt bool      `json:"is_checkout_attempt"`
	IsCheckoutSuccess bool      `json:"is_checkout_success"`
	CreatedAt         time.Time `json:"created_at"`
}

// MatchLock is the exclusive, session-scoped, time-bounded claim that
// permits one client to mutate a match's live state.
type MatchLock struct {
	MatchID        uuid.UUID `json:"match_id"`
	SessionID      string    `json:"session_id"`
	DeviceName     string    `json:"device_name,omitempty"`
	DeviceInfo     string    `json:"device_info,omitempty"`
	AutoExtend     bool      `json:"auto_extend"`
	AcquiredAt     time.Time `json:"acquired_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func (l *MatchLock) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

func (l *MatchLock) OwnedBy(sessionID string) bool {
	return l.SessionID == sessionID
}

// Takeoverable reports whether a lock held on a match may be replaced
// by the given session: its own lock always, anyone else's only once
// expired. This predicate mirrors the conditional-update guard the
// lock repository executes atomically.
func (l *MatchLock) Takeoverable(sessionID string, now time.Time) bool {
	return l.OwnedBy(sessionID) || l.IsExpired(now)
}

type PlayerStats struct {
	MatchID            uuid.UUID `json:"match_id"`
	PlayerNumber       int       `json:"player_number"`
	DartsThrown        int       `json:"darts_thrown"`
	ThreeDartAverage   float64   `json:"three_dart_average"`
	FirstNineAverage   float64   `json:"first_nine_average"`
	CheckoutAttempts   int       `json:"checkout_attempts"`
	CheckoutHits       int       `json:"checkout_hits"`
	CheckoutPercentage float64   `json:"checkout_percentage"`
	ScoresSixtyPlus    int       `json:"scores_60_plus"`
	ScoresHundredPlus  int       `json:"scores_100_plus"`
	Scores140Plus      int       `json:"scores_140_plus"`
	Scores180          int       `json:"scores_180"`
	BestLegDarts       int       `json:"best_leg_darts"`
	WorstLegDarts      int       `json:"worst_leg_darts"`
	HighestScore       int       `json:"highest_score"`
	HighestCheckout    int       `json:"highest_checkout"`
}
