package reservepool

import (
	"errors"
	"fmt"
)

// ErrStaleDiff is returned when a diff is older than the state it is applied to.
var ErrStaleDiff = errors.New("stale diff")

// Patcher constructs the next view of a pool by applying a diff to the previous one.
// The result shares no memory with prevState or diff.
func Patcher(prevState State, diff PoolDiff) (State, error) {
	if diff.Sequence < prevState.Sequence {
		return State{}, fmt.Errorf("%w: diff at sequence %d, state at %d", ErrStaleDiff, diff.Sequence, prevState.Sequence)
	}

	newState := deepCopyState(prevState)
	if diff.ReserveA != nil {
		newState.ReserveA = diff.ReserveA.Clone()
	}
	if diff.ReserveB != nil {
		newState.ReserveB = diff.ReserveB.Clone()
	}
	if diff.TotalShares != nil {
		newState.TotalShares = diff.TotalShares.Clone()
	}
	newState.Sequence = diff.Sequence
	return newState, nil
}
