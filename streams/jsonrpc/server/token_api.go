package server

import (
	"context"
	"fmt"

	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/streams/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenAPI is registered under the "token" namespace and serves the pair's ledgers.
type TokenAPI struct {
	ledgers map[string]*erc20.Ledger
	metas   []erc20.Token
	metrics *Metrics
}

func (api *TokenAPI) ledger(token common.Address) (*erc20.Ledger, error) {
	l, ok := api.ledgers[token.Hex()]
	if !ok {
		return nil, jsonrpc.NewError(fmt.Errorf("%w: unknown token %s", reservepool.ErrTokenMismatch, token))
	}
	return l, nil
}

func (api *TokenAPI) Tokens() []erc20.Token {
	return api.metas
}

func (api *TokenAPI) Metadata(token common.Address) (erc20.Token, error) {
	l, err := api.ledger(token)
	if err != nil {
		return erc20.Token{}, err
	}
	return l.Meta(), nil
}

func (api *TokenAPI) TotalSupply(token common.Address) (*uint256.Int, error) {
	l, err := api.ledger(token)
	if err != nil {
		return nil, err
	}
	return l.TotalSupply(), nil
}

func (api *TokenAPI) BalanceOf(token, owner common.Address) (*uint256.Int, error) {
	l, err := api.ledger(token)
	if err != nil {
		return nil, err
	}
	return l.BalanceOf(owner), nil
}

func (api *TokenAPI) Allowance(token, owner, spender common.Address) (*uint256.Int, error) {
	l, err := api.ledger(token)
	if err != nil {
		return nil, err
	}
	return l.Allowance(owner, spender), nil
}

func (api *TokenAPI) Approve(ctx context.Context, token, from, spender common.Address, amount *uint256.Int) (bool, error) {
	l, err := api.ledger(token)
	if err != nil {
		return false, err
	}
	if err := api.metrics.call("token_approve", l.Approve(ctx, from, spender, amount)); err != nil {
		return false, err
	}
	return true, nil
}

func (api *TokenAPI) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) (bool, error) {
	l, err := api.ledger(token)
	if err != nil {
		return false, err
	}
	if err := api.metrics.call("token_transfer", l.Transfer(ctx, from, to, amount)); err != nil {
		return false, err
	}
	return true, nil
}
