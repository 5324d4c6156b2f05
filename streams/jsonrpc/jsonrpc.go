// Package jsonrpc holds the wire contract shared by the swap RPC server and its clients.
package jsonrpc

import (
	"encoding/json"

	"github.com/holiman/uint256"
)

const (
	// SwapNamespace is the namespace under which the pool API and the streamer are registered.
	SwapNamespace = "swap"
	// TokenNamespace is the namespace of the token ledger API.
	TokenNamespace = "token"

	StateStreamSubscriptionMethod = "subscribeStateStream"

	EventTypeFull = "full"
	EventTypeDiff = "diff"
)

// SubscriptionEvent is the wrapper object sent for every stream notification.
// Payload is an engine.State for "full" events and a differ.StateDiff for "diff" events.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"` // unix nanoseconds
}

// ReservesResult is the reply of swap_reserves.
type ReservesResult struct {
	ReserveA *uint256.Int `json:"reserveA"`
	ReserveB *uint256.Int `json:"reserveB"`
	Sequence uint64       `json:"sequence"`
}

// AddLiquidityResult is the reply of swap_addLiquidity.
type AddLiquidityResult struct {
	Shares *uint256.Int `json:"shares"`
}

// RemoveLiquidityResult is the reply of swap_removeLiquidity.
type RemoveLiquidityResult struct {
	AmountA *uint256.Int `json:"amountA"`
	AmountB *uint256.Int `json:"amountB"`
}

// SwapResult is the reply of swap_swapAForB and swap_swapBForA.
type SwapResult struct {
	AmountIn  *uint256.Int `json:"amountIn"`
	AmountOut *uint256.Int `json:"amountOut"`
}

// SkimResult is the reply of swap_skim.
type SkimResult struct {
	AmountA *uint256.Int `json:"amountA"`
	AmountB *uint256.Int `json:"amountB"`
}
