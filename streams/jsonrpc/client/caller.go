package client

import (
	"context"
	"fmt"

	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/streams/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// Caller is a typed wrapper over the swap and token RPC namespaces. Pool errors
// come back as *jsonrpc.Error values that match the reservepool sentinels with errors.Is.
type Caller struct {
	rpc *rpc.Client
}

// Dial connects a Caller to url (http, ws or ipc).
func Dial(ctx context.Context, url string) (*Caller, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return NewCaller(c), nil
}

func NewCaller(c *rpc.Client) *Caller {
	return &Caller{rpc: c}
}

func (c *Caller) Close() {
	c.rpc.Close()
}

func (c *Caller) call(ctx context.Context, result any, method string, args ...any) error {
	return jsonrpc.FromRPCError(c.rpc.CallContext(ctx, result, method, args...))
}

func swapMethod(name string) string  { return jsonrpc.SwapNamespace + "_" + name }
func tokenMethod(name string) string { return jsonrpc.TokenNamespace + "_" + name }

// --- swap namespace ---

func (c *Caller) State(ctx context.Context) (*engine.State, error) {
	var state engine.State
	if err := c.call(ctx, &state, swapMethod("state")); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Caller) Reserves(ctx context.Context) (*jsonrpc.ReservesResult, error) {
	var res jsonrpc.ReservesResult
	if err := c.call(ctx, &res, swapMethod("reserves")); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Caller) SharesOf(ctx context.Context, provider common.Address) (*uint256.Int, error) {
	var shares uint256.Int
	if err := c.call(ctx, &shares, swapMethod("sharesOf"), provider); err != nil {
		return nil, err
	}
	return &shares, nil
}

func (c *Caller) GetAmountOut(ctx context.Context, tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	var out uint256.Int
	if err := c.call(ctx, &out, swapMethod("getAmountOut"), tokenIn, amountIn); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Caller) AddLiquidity(ctx context.Context, from common.Address, amountA, amountB *uint256.Int) (*uint256.Int, error) {
	var res jsonrpc.AddLiquidityResult
	if err := c.call(ctx, &res, swapMethod("addLiquidity"), from, amountA, amountB); err != nil {
		return nil, err
	}
	return res.Shares, nil
}

func (c *Caller) RemoveLiquidity(ctx context.Context, from common.Address, shares, minA, minB *uint256.Int) (*jsonrpc.RemoveLiquidityResult, error) {
	var res jsonrpc.RemoveLiquidityResult
	if err := c.call(ctx, &res, swapMethod("removeLiquidity"), from, shares, minA, minB); err != nil {
		return nil, err
	}
	return &res, nil
}

// SwapAForB sells amountIn of tokenA. A nil minAmountOut disables the slippage check.
func (c *Caller) SwapAForB(ctx context.Context, from common.Address, amountIn, minAmountOut *uint256.Int) (*uint256.Int, error) {
	var res jsonrpc.SwapResult
	if err := c.call(ctx, &res, swapMethod("swapAForB"), from, amountIn, minAmountOut); err != nil {
		return nil, err
	}
	return res.AmountOut, nil
}

// SwapBForA sells amountIn of tokenB. A nil minAmountOut disables the slippage check.
func (c *Caller) SwapBForA(ctx context.Context, from common.Address, amountIn, minAmountOut *uint256.Int) (*uint256.Int, error) {
	var res jsonrpc.SwapResult
	if err := c.call(ctx, &res, swapMethod("swapBForA"), from, amountIn, minAmountOut); err != nil {
		return nil, err
	}
	return res.AmountOut, nil
}

func (c *Caller) Sync(ctx context.Context) (uint64, error) {
	var seq uint64
	err := c.call(ctx, &seq, swapMethod("sync"))
	return seq, err
}

// --- token namespace ---

func (c *Caller) Tokens(ctx context.Context) ([]erc20.Token, error) {
	var tokens []erc20.Token
	err := c.call(ctx, &tokens, tokenMethod("tokens"))
	return tokens, err
}

func (c *Caller) BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error) {
	var balance uint256.Int
	if err := c.call(ctx, &balance, tokenMethod("balanceOf"), token, owner); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (c *Caller) Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	var allowance uint256.Int
	if err := c.call(ctx, &allowance, tokenMethod("allowance"), token, owner, spender); err != nil {
		return nil, err
	}
	return &allowance, nil
}

func (c *Caller) Approve(ctx context.Context, token, from, spender common.Address, amount *uint256.Int) error {
	var ok bool
	return c.call(ctx, &ok, tokenMethod("approve"), token, from, spender, amount)
}

func (c *Caller) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	var ok bool
	return c.call(ctx, &ok, tokenMethod("transfer"), token, from, to, amount)
}
