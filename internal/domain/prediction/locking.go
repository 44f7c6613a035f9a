package prediction

import (
	"time"

	"github.com/scorecast/scorecast/internal/domain/fixture"
)

// LockState describes whether a prediction may still be edited.
type LockState string

const (
	// StateEditable: fixture has not started and the gameweek has not begun.
	StateEditable LockState = "editable"
	// StateLocked: the user saved the prediction; an explicit unlock
	// returns it to editable while the fixture is still pre-kickoff.
	StateLocked LockState = "locked"
	// StateFrozen: terminal. No further edits regardless of the stored
	// locked flag.
	StateFrozen LockState = "frozen"
)

// EvaluateLock derives the lock state for one (user, fixture) pair from
// current fixture facts. It is computed freshly on every evaluation and
// never persisted; the stored Locked flag is advisory display state only.
//
// The pair freezes the moment either the fixture leaves its pre-kickoff
// status or the round's earliest kickoff passes, whichever happens first.
func EvaluateLock(fx fixture.Fixture, roundFirstKickoff time.Time, locked bool, now time.Time) LockState {
	if !fixture.IsNotStarted(fx.Status) {
		return StateFrozen
	}
	if !roundFirstKickoff.IsZero() && !now.Before(roundFirstKickoff) {
		return StateFrozen
	}
	if !fx.Kickoff.IsZero() && !now.Before(fx.Kickoff) {
		return StateFrozen
	}
	if locked {
		return StateLocked
	}
	return StateEditable
}

// Editable reports whether the state still accepts edits via unlock.
func (s LockState) Editable() bool {
	return s == StateEditable
}

// Frozen reports whether the state is terminal.
func (s LockState) Frozen() bool {
	return s == StateFrozen
}
