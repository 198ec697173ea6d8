package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrThrowNotFound = errors.New("throw not found")
	ErrLockNotFound  = errors.New("lock not found")
	ErrNotLockOwner  = errors.New("lock not owned by session")
	ErrMatchFinished = errors.New("match already finished")
	ErrInvalidInput  = errors.New("invalid input")
)

// LockConflictError signals that another session holds a non-expired
// lock on the match. It carries the competing lock so callers can show
// who the holder is.
type LockConflictError struct {
	Holder *MatchLock
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("match %s is locked by session %s until %s",
		e.Holder.MatchID, e.Holder.SessionID, e.Holder.ExpiresAt.Format("15:04:05"))
}

// TransitionError signals an attempt to move a match to a status its
// lifecycle does not permit.
type TransitionError struct {
	From MatchStatus
	To   MatchStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition match from %s to %s", e.From, e.To)
}

func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
