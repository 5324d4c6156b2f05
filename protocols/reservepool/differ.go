package reservepool

import "github.com/holiman/uint256"

// --- Diff Structures with Helper Methods ---

// PoolDiff carries the fields that changed between two views of the same pool.
// Unchanged amounts are nil.
type PoolDiff struct {
	ReserveA    *uint256.Int `json:"reserveA,omitempty"`
	ReserveB    *uint256.Int `json:"reserveB,omitempty"`
	TotalShares *uint256.Int `json:"totalShares,omitempty"`
	Sequence    uint64       `json:"sequence"`
}

// IsEmpty returns true if the diff contains no changes.
func (d PoolDiff) IsEmpty() bool {
	return d.ReserveA == nil && d.ReserveB == nil && d.TotalShares == nil
}

// Differ calculates the difference between two views of one pool.
// Only the reserves and share supply move after construction, so only they are compared.
func Differ(old, new State) PoolDiff {
	diff := PoolDiff{Sequence: new.Sequence}
	if changed(old.ReserveA, new.ReserveA) {
		diff.ReserveA = new.ReserveA.Clone()
	}
	if changed(old.ReserveB, new.ReserveB) {
		diff.ReserveB = new.ReserveB.Clone()
	}
	if changed(old.TotalShares, new.TotalShares) {
		diff.TotalShares = new.TotalShares.Clone()
	}
	return diff
}

// changed reports whether new carries a value that differs from old.
func changed(old, new *uint256.Int) bool {
	if new == nil {
		return false
	}
	return old == nil || !old.Eq(new)
}
