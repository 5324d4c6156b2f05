package reservepool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Status is the macro-state of a pool.
type Status string

const (
	// StatusUnseeded means at least one reserve is zero; only deposits are accepted.
	StatusUnseeded Status = "unseeded"
	// StatusActive means both reserves are positive; swaps are enabled.
	StatusActive Status = "active"
)

// State is an immutable snapshot of a pool taken after a commit.
type State struct {
	Address     common.Address `json:"address"`
	TokenA      common.Address `json:"tokenA"`
	TokenB      common.Address `json:"tokenB"`
	ReserveA    *uint256.Int   `json:"reserveA"`
	ReserveB    *uint256.Int   `json:"reserveB"`
	TotalShares *uint256.Int   `json:"totalShares"`
	FeeBps      uint16         `json:"feeBps"` // i.e 30 for 0.3%
	Sequence    uint64         `json:"sequence"`
}

// Status derives the pool's macro-state from its reserves.
func (s State) Status() Status {
	if s.ReserveA == nil || s.ReserveB == nil || s.ReserveA.IsZero() || s.ReserveB.IsZero() {
		return StatusUnseeded
	}
	return StatusActive
}

// deepCopyState creates a new State with its own memory for the *uint256.Int fields.
func deepCopyState(s State) State {
	c := s
	if s.ReserveA != nil {
		c.ReserveA = s.ReserveA.Clone()
	}
	if s.ReserveB != nil {
		c.ReserveB = s.ReserveB.Clone()
	}
	if s.TotalShares != nil {
		c.TotalShares = s.TotalShares.Clone()
	}
	return c
}

// GetReserves returns the reserves of s ordered for a trade from tokenIn to tokenOut.
func GetReserves(tokenIn, tokenOut common.Address, s State) (reserveIn, reserveOut *uint256.Int, err error) {
	switch {
	case tokenIn == s.TokenA && tokenOut == s.TokenB:
		return s.ReserveA, s.ReserveB, nil
	case tokenIn == s.TokenB && tokenOut == s.TokenA:
		return s.ReserveB, s.ReserveA, nil
	default:
		return nil, nil, fmt.Errorf("%w: pool %s trades %s/%s, not %s/%s", ErrTokenMismatch, s.Address, s.TokenA, s.TokenB, tokenIn, tokenOut)
	}
}

// Counterpart returns the other token of the pair.
func (s State) Counterpart(token common.Address) (common.Address, error) {
	switch token {
	case s.TokenA:
		return s.TokenB, nil
	case s.TokenB:
		return s.TokenA, nil
	default:
		return common.Address{}, fmt.Errorf("%w: pool %s does not trade %s", ErrTokenMismatch, s.Address, token)
	}
}
