package engine

import (
	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/ethereum/go-ethereum/common"
)

// State is the main data structure broadcast to subscribers.
type State struct {
	ChainID   uint64            `json:"chainId"`
	Timestamp uint64            `json:"timestamp"` // unix nanoseconds when the snapshot was taken
	Tokens    []erc20.Token     `json:"tokens"`
	Pool      reservepool.State `json:"pool"`
}

// Sequence returns the pool commit the state was taken at.
func (state *State) Sequence() uint64 {
	return state.Pool.Sequence
}

// Token returns the metadata of a token of the pair, if known.
func (state *State) Token(address common.Address) (erc20.Token, bool) {
	for _, t := range state.Tokens {
		if t.Address == address {
			return t, true
		}
	}
	return erc20.Token{}, false
}
