package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to MatchStatus
		want     bool
	}{
		{StatusSetup, StatusInProgress, true},
		{StatusSetup, StatusCancelled, true},
		{StatusSetup, StatusPaused, false},
		{StatusSetup, StatusCompleted, false},
		{StatusInProgress, StatusPaused, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusSetup, false},
		{StatusPaused, StatusInProgress, true},
		{StatusPaused, StatusCompleted, true},
		{StatusPaused, StatusCancelled, true},
		{StatusPaused, StatusSetup, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusInProgress, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminalStatesPermitNothing(t *testing.T) {
	all := []MatchStatus{StatusSetup, StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled}
	for _, terminal := range []MatchStatus{StatusCompleted, StatusCancelled} {
		assert.True(t, terminal.Terminal())
		for _, next := range all {
			assert.False(t, terminal.CanTransition(next), "%s -> %s", terminal, next)
		}
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusSetup.Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.False(t, MatchStatus("running").Valid())
	assert.False(t, MatchStatus("").Valid())
}

func TestCheckoutRuleAndFormatValid(t *testing.T) {
	assert.True(t, CheckoutDouble.Valid())
	assert.True(t, CheckoutStraight.Valid())
	assert.True(t, CheckoutMaster.Valid())
	assert.False(t, CheckoutRule("triple_out").Valid())

	assert.True(t, FormatFirstTo.Valid())
	assert.True(t, FormatBestOf.Valid())
	assert.True(t, FormatUnlimited.Valid())
	assert.False(t, MatchFormat("sets").Valid())
}

func TestPlayerInfoValid(t *testing.T) {
	guest := "Alice"
	id := uuid.New()

	assert.True(t, PlayerInfo{GuestName: &guest, Name: guest}.Valid())
	assert.True(t, PlayerInfo{UserID: &id}.Valid())
	assert.False(t, PlayerInfo{}.Valid(), "neither identity set")
	assert.False(t, PlayerInfo{UserID: &id, GuestName: &guest}.Valid(), "both identities set")
}

func TestLockPredicates(t *testing.T) {
	now := time.Now()
	lock := &MatchLock{
		SessionID: "session-a",
		ExpiresAt: now.Add(time.Minute),
	}

	assert.False(t, lock.IsExpired(now))
	assert.True(t, lock.IsExpired(now.Add(time.Minute)), "expiry boundary counts as expired")
	assert.True(t, lock.OwnedBy("session-a"))
	assert.False(t, lock.OwnedBy("session-b"))

	assert.True(t, lock.Takeoverable("session-a", now), "owner can always reclaim")
	assert.False(t, lock.Takeoverable("session-b", now))
	assert.True(t, lock.Takeoverable("session-b", now.Add(2*time.Minute)), "expired locks are up for grabs")
}
