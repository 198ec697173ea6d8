package domain

// validTransitions encodes the match lifecycle:
// setup -> in_progress -> {paused <-> in_progress} -> {completed | cancelled}.
// Cancellation is reachable from any non-terminal state.
var validTransitions = map[MatchStatus][]MatchStatus{
	StatusSetup:      {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused:     {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s MatchStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s MatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether the lifecycle permits moving from s to
// next. Terminal states permit nothing.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	for _, t := range validTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (r CheckoutRule) Valid() bool {
	switch r {
	case CheckoutStraight, CheckoutDouble, CheckoutMaster:
		return true
	}
	return false
}

func (f MatchFormat) Valid() bool {
	switch f {
	case FormatFirstTo, FormatBestOf, FormatUnlimited:
		return true
	}
	return false
}
