// Package scoring holds the pure x01 arithmetic: bust and checkout
// detection plus to-go recalculation over an ordered round list.
package scoring

import "github.com/adrianmirek/darterassistant-sub002/internal/constants"

// Round pairs one player's scored and remaining values for a single
// visit to the oche. The slice passed to RecalculateToGo is ordered by
// running order within a leg.
type Round struct {
	Scored int
	ToGo   int
}

// ValidScore reports whether a three-dart visit score is in range.
func ValidScore(score int) bool {
	return score >= 0 && score <= constants.MaxThrowScore
}

// IsBust reports whether subtracting thrown from current busts the
// visit: the remainder goes negative, or lands on exactly 1, which
// cannot be finished on a double.
func IsBust(current, thrown int) bool {
	rest := current - thrown
	return rest < 0 || rest == 1
}

// IsWinningThrow reports whether the visit checks the leg out.
func IsWinningThrow(current, thrown int) bool {
	return current-thrown == 0
}

// IsCheckoutAttempt reports whether a remaining score is finishable
// with the three darts in hand (170 being the maximum checkout).
func IsCheckoutAttempt(remaining int) bool {
	return remaining > 0 && remaining <= constants.MaxCheckout
}

// RecalculateToGo recomputes the ToGo values of rounds[from:] for one
// player, starting from the value before rounds[from]: the starting
// score when from is 0, otherwise rounds[from-1].ToGo. A round whose
// score would bust keeps the previous ToGo, the visit ignored exactly
// as IsBust discards it live. The input slice is not modified.
//
// Running the function twice over its own output yields the same
// result, so corrections can re-run it from any index.
func RecalculateToGo(rounds []Round, from int, startingScore int) []Round {
	out := make([]Round, len(rounds))
	copy(out, rounds)

	if from < 0 || from >= len(out) {
		return out
	}

	prev := startingScore
	if from > 0 {
		prev = out[from-1].ToGo
	}

	for i := from; i < len(out); i++ {
		if IsBust(prev, out[i].Scored) {
			out[i].ToGo = prev
		} else {
			out[i].ToGo = prev - out[i].Scored
		}
		prev = out[i].ToGo
	}
	return out
}
