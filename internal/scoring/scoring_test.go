package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCheckoutAttempt(t *testing.T) {
	for remaining := 1; remaining <= 170; remaining++ {
		assert.True(t, IsCheckoutAttempt(remaining), "remaining %d", remaining)
	}
	assert.False(t, IsCheckoutAttempt(0))
	assert.False(t, IsCheckoutAttempt(171))
	assert.False(t, IsCheckoutAttempt(501))
}

func TestIsBust(t *testing.T) {
	cases := []struct {
		name    string
		current int
		thrown  int
		want    bool
	}{
		{"exact checkout is not a bust", 40, 40, false},
		{"normal visit", 501, 100, false},
		{"overshoot", 40, 41, true},
		{"leaves one", 40, 39, true},
		{"leaves two", 40, 38, false},
		{"zero score never busts", 2, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsBust(tc.current, tc.thrown))
		})
	}
}

func TestIsWinningThrow(t *testing.T) {
	assert.True(t, IsWinningThrow(121, 121))
	assert.False(t, IsWinningThrow(121, 120))
	assert.False(t, IsWinningThrow(121, 122))
}

func TestValidScore(t *testing.T) {
	assert.True(t, ValidScore(0))
	assert.True(t, ValidScore(180))
	assert.False(t, ValidScore(-1))
	assert.False(t, ValidScore(181))
}

func TestRecalculateToGo501Leg(t *testing.T) {
	// 501: 100, 140, 140, 121 -> 401, 261, 121, 0.
	rounds := []Round{{Scored: 100}, {Scored: 140}, {Scored: 140}, {Scored: 121}}

	got := RecalculateToGo(rounds, 0, 501)

	require.Len(t, got, 4)
	assert.Equal(t, 401, got[0].ToGo)
	assert.Equal(t, 261, got[1].ToGo)
	assert.Equal(t, 121, got[2].ToGo)
	assert.Equal(t, 0, got[3].ToGo)
	assert.True(t, IsWinningThrow(got[2].ToGo, rounds[3].Scored))
}

func TestRecalculateToGoBustReverts(t *testing.T) {
	// 60 left, scoring 59 would leave 1: the visit is ignored.
	rounds := []Round{{Scored: 441}, {Scored: 59}, {Scored: 20}}

	got := RecalculateToGo(rounds, 0, 501)

	assert.Equal(t, 60, got[0].ToGo)
	assert.Equal(t, 60, got[1].ToGo, "bust keeps the pre-throw value")
	assert.Equal(t, 40, got[2].ToGo)
}

func TestRecalculateToGoIdempotent(t *testing.T) {
	rounds := []Round{{Scored: 180}, {Scored: 180}, {Scored: 180}, {Scored: 141}}

	once := RecalculateToGo(rounds, 1, 501)
	twice := RecalculateToGo(once, 1, 501)

	assert.Equal(t, once, twice)
}

func TestRecalculateToGoFromMiddle(t *testing.T) {
	rounds := []Round{
		{Scored: 100, ToGo: 401},
		{Scored: 60, ToGo: 0}, // stale after a correction
		{Scored: 41, ToGo: 0},
	}

	got := RecalculateToGo(rounds, 1, 501)

	assert.Equal(t, 401, got[0].ToGo, "rounds before the index are untouched")
	assert.Equal(t, 341, got[1].ToGo)
	assert.Equal(t, 300, got[2].ToGo)
}

func TestRecalculateToGoOutOfRangeIndex(t *testing.T) {
	rounds := []Round{{Scored: 100, ToGo: 401}}

	assert.Equal(t, rounds, RecalculateToGo(rounds, 5, 501))
	assert.Equal(t, rounds, RecalculateToGo(rounds, -1, 501))
}

func TestRecalculateToGoDoesNotMutateInput(t *testing.T) {
	rounds := []Round{{Scored: 100}, {Scored: 100}}

	_ = RecalculateToGo(rounds, 0, 501)

	assert.Equal(t, 0, rounds[0].ToGo)
	assert.Equal(t, 0, rounds[1].ToGo)
}
