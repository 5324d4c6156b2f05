package reservepool

import (
	"github.com/defistate/tokenswap-go/protocols/reservepool/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// --- Read Methods ---
// Reserve reads are served from the last published view and never wait on a mutation.

// View returns a deep copy of the last committed state.
func (p *Pool) View() State {
	return deepCopyState(*p.view.Load())
}

// ReserveA returns the committed reserve of tokenA.
func (p *Pool) ReserveA() *uint256.Int {
	return p.view.Load().ReserveA.Clone()
}

// ReserveB returns the committed reserve of tokenB.
func (p *Pool) ReserveB() *uint256.Int {
	return p.view.Load().ReserveB.Clone()
}

// Reserves returns both reserves from the same commit.
func (p *Pool) Reserves() (reserveA, reserveB *uint256.Int) {
	s := p.view.Load()
	return s.ReserveA.Clone(), s.ReserveB.Clone()
}

func (p *Pool) TotalShares() *uint256.Int {
	return p.view.Load().TotalShares.Clone()
}

func (p *Pool) Sequence() uint64 {
	return p.view.Load().Sequence
}

func (p *Pool) Status() Status {
	return p.view.Load().Status()
}

// SharesOf returns the shares owned by provider.
func (p *Pool) SharesOf(provider common.Address) *uint256.Int {
	p.sharesMu.RLock()
	defer p.sharesMu.RUnlock()
	if owned, ok := p.shares[provider]; ok {
		return owned.Clone()
	}
	return new(uint256.Int)
}

// Excess returns the custody held above each committed reserve, as left by direct
// transfers. Like the other reads it never waits on a mutation.
func (p *Pool) Excess() (amountA, amountB *uint256.Int) {
	s := p.view.Load()
	return p.excess(s.ReserveA, s.ReserveB)
}

// GetAmountOut quotes a swap of amountIn of tokenIn against the current view.
func (p *Pool) GetAmountOut(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	s := p.view.Load()
	tokenOut, err := s.Counterpart(tokenIn)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, *s)
	if err != nil {
		return nil, err
	}
	return calculator.GetAmountOut(amountIn, reserveIn, reserveOut, s.FeeBps)
}

// GetAmountIn returns the smallest input of the other token that buys amountOut of tokenOut.
func (p *Pool) GetAmountIn(tokenOut common.Address, amountOut *uint256.Int) (*uint256.Int, error) {
	s := p.view.Load()
	tokenIn, err := s.Counterpart(tokenOut)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, *s)
	if err != nil {
		return nil, err
	}
	return calculator.GetAmountIn(amountOut, reserveIn, reserveOut, s.FeeBps)
}

// Quote returns the fee-less spot value of amountIn of tokenIn in the other token.
func (p *Pool) Quote(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	s := p.view.Load()
	tokenOut, err := s.Counterpart(tokenIn)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, *s)
	if err != nil {
		return nil, err
	}
	return calculator.Quote(amountIn, reserveIn, reserveOut)
}
