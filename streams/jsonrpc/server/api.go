package server

import (
	"context"

	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/streams/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// SwapAPI is registered under the "swap" namespace. Callers name the acting
// account with an explicit from address.
type SwapAPI struct {
	pool     *reservepool.Pool
	streamer *Streamer
	metrics  *Metrics
	logger   Logger
}

// --- Read Methods ---

func (api *SwapAPI) State() *engine.State {
	return api.streamer.Latest()
}

func (api *SwapAPI) Reserves() jsonrpc.ReservesResult {
	view := api.pool.View()
	return jsonrpc.ReservesResult{ReserveA: view.ReserveA, ReserveB: view.ReserveB, Sequence: view.Sequence}
}

func (api *SwapAPI) ReserveA() *uint256.Int {
	return api.pool.ReserveA()
}

func (api *SwapAPI) ReserveB() *uint256.Int {
	return api.pool.ReserveB()
}

func (api *SwapAPI) SharesOf(provider common.Address) *uint256.Int {
	return api.pool.SharesOf(provider)
}

func (api *SwapAPI) GetAmountOut(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	out, err := api.pool.GetAmountOut(tokenIn, amountIn)
	return out, jsonrpc.NewError(err)
}

func (api *SwapAPI) GetAmountIn(tokenOut common.Address, amountOut *uint256.Int) (*uint256.Int, error) {
	in, err := api.pool.GetAmountIn(tokenOut, amountOut)
	return in, jsonrpc.NewError(err)
}

// --- Write Methods ---

func (api *SwapAPI) AddLiquidity(ctx context.Context, from common.Address, amountA, amountB *uint256.Int) (*jsonrpc.AddLiquidityResult, error) {
	shares, err := api.pool.AddLiquidity(ctx, from, amountA, amountB)
	if err := api.metrics.call("swap_addLiquidity", err); err != nil {
		return nil, err
	}
	return &jsonrpc.AddLiquidityResult{Shares: shares}, nil
}

// RemoveLiquidity burns shares of from. minA and minB are optional.
func (api *SwapAPI) RemoveLiquidity(ctx context.Context, from common.Address, shares, minA, minB *uint256.Int) (*jsonrpc.RemoveLiquidityResult, error) {
	amountA, amountB, err := api.pool.RemoveLiquidity(ctx, from, shares, minA, minB)
	if err := api.metrics.call("swap_removeLiquidity", err); err != nil {
		return nil, err
	}
	return &jsonrpc.RemoveLiquidityResult{AmountA: amountA, AmountB: amountB}, nil
}

// SwapAForB sells amountIn of tokenA. minAmountOut is optional.
func (api *SwapAPI) SwapAForB(ctx context.Context, from common.Address, amountIn, minAmountOut *uint256.Int) (*jsonrpc.SwapResult, error) {
	out, err := api.pool.SwapAForB(ctx, from, amountIn, minAmountOut)
	if err := api.metrics.call("swap_swapAForB", err); err != nil {
		return nil, err
	}
	return &jsonrpc.SwapResult{AmountIn: amountIn, AmountOut: out}, nil
}

// SwapBForA sells amountIn of tokenB. minAmountOut is optional.
func (api *SwapAPI) SwapBForA(ctx context.Context, from common.Address, amountIn, minAmountOut *uint256.Int) (*jsonrpc.SwapResult, error) {
	out, err := api.pool.SwapBForA(ctx, from, amountIn, minAmountOut)
	if err := api.metrics.call("swap_swapBForA", err); err != nil {
		return nil, err
	}
	return &jsonrpc.SwapResult{AmountIn: amountIn, AmountOut: out}, nil
}

// Sync returns the pool sequence after absorbing any excess custody.
func (api *SwapAPI) Sync(ctx context.Context) (uint64, error) {
	err := api.pool.Sync(ctx)
	if err := api.metrics.call("swap_sync", err); err != nil {
		return 0, err
	}
	return api.pool.Sequence(), nil
}

func (api *SwapAPI) Skim(ctx context.Context, to common.Address) (*jsonrpc.SkimResult, error) {
	amountA, amountB, err := api.pool.Skim(ctx, to)
	if err := api.metrics.call("swap_skim", err); err != nil {
		return nil, err
	}
	return &jsonrpc.SkimResult{AmountA: amountA, AmountB: amountB}, nil
}

// --- Subscriptions ---

// SubscribeStateStream streams a "full" event followed by a "diff" event per commit.
func (api *SwapAPI) SubscribeStateStream(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	sub := notifier.CreateSubscription()
	go api.streamer.serve(notifier, sub)
	return sub, nil
}
