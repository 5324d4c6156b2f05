package erc20

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientBalance is returned when the owner holds less than the requested amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when the spender has not been approved for the requested amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrZeroAddress is returned when a transfer, mint or approval targets the zero address.
	ErrZeroAddress = errors.New("zero address")
	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrArithmeticOverflow is returned when a balance or the total supply would exceed 2^256-1.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// maxAllowance is treated as an infinite approval and is never decremented.
var maxAllowance = new(uint256.Int).SetAllOne()

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Ledger is an in-memory ERC-20 token: balances, allowances and total supply
// guarded by a single RWMutex. Every mutation either applies fully or not at all.
type Ledger struct {
	mu          sync.RWMutex
	meta        Token
	totalSupply uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	logger      Logger
}

// NewLedger creates an empty ledger for the given token.
func NewLedger(meta Token, logger Logger) (*Ledger, error) {
	if meta.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: token address is required", ErrZeroAddress)
	}
	if logger == nil {
		return nil, errors.New("erc20: Logger cannot be nil")
	}
	return &Ledger{
		meta:       meta,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
		logger:     logger,
	}, nil
}

func (l *Ledger) Address() common.Address { return l.meta.Address }

func (l *Ledger) Meta() Token { return l.meta }

// TotalSupply returns a copy of the total supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply.Clone()
}

// BalanceOf returns a copy of owner's balance. Unknown owners hold zero.
func (l *Ledger) BalanceOf(owner common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[owner]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// Allowance returns a copy of the amount spender may still pull from owner.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.allowances[owner][spender]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

// Mint creates amount new tokens for to.
func (l *Ledger) Mint(to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: cannot mint to the zero address", ErrZeroAddress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	newSupply, overflow := new(uint256.Int).AddOverflow(&l.totalSupply, amount)
	if overflow {
		return fmt.Errorf("%w: total supply of %s", ErrArithmeticOverflow, l.meta.Symbol)
	}
	// balance <= totalSupply, so the credit cannot overflow once the supply did not.
	l.credit(to, amount)
	l.totalSupply.Set(newSupply)

	l.logger.Debug("Minted", "token", l.meta.Symbol, "to", to, "amount", amount.Dec())
	return nil
}

// Approve sets the amount spender may pull from owner, replacing any previous allowance.
func (l *Ledger) Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil {
		return ErrNilAmount
	}
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return fmt.Errorf("%w: approve owner=%s spender=%s", ErrZeroAddress, owner, spender)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	spenders, ok := l.allowances[owner]
	if !ok {
		spenders = make(map[common.Address]*uint256.Int)
		l.allowances[owner] = spenders
	}
	spenders[spender] = amount.Clone()
	return nil
}

// Transfer moves amount from from to to. The caller is trusted to act for from.
func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil {
		return ErrNilAmount
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: cannot transfer to the zero address", ErrZeroAddress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkBalance(from, amount); err != nil {
		return err
	}
	l.move(from, to, amount)
	return nil
}

// TransferFrom moves amount from from to to on behalf of spender, consuming spender's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil {
		return ErrNilAmount
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: cannot transfer to the zero address", ErrZeroAddress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowances[from][spender]
	if allowance == nil || allowance.Lt(amount) {
		have := "0"
		if allowance != nil {
			have = allowance.Dec()
		}
		return fmt.Errorf("%w: %s allowance of %s for %s is %s, need %s", ErrInsufficientAllowance, l.meta.Symbol, from, spender, have, amount.Dec())
	}
	if err := l.checkBalance(from, amount); err != nil {
		return err
	}

	if !allowance.Eq(maxAllowance) {
		allowance.Sub(allowance, amount)
	}
	l.move(from, to, amount)
	return nil
}

// checkBalance MUST be called with l.mu held.
func (l *Ledger) checkBalance(owner common.Address, amount *uint256.Int) error {
	balance := l.balances[owner]
	if balance == nil {
		balance = new(uint256.Int)
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s balance of %s is %s, need %s", ErrInsufficientBalance, l.meta.Symbol, owner, balance.Dec(), amount.Dec())
	}
	return nil
}

// move MUST be called with l.mu held and after checkBalance succeeded.
// The sum of all balances equals totalSupply, so crediting to cannot overflow.
func (l *Ledger) move(from, to common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	l.balances[from].Sub(l.balances[from], amount)
	l.credit(to, amount)
}

func (l *Ledger) credit(to common.Address, amount *uint256.Int) {
	balance, ok := l.balances[to]
	if !ok {
		balance = new(uint256.Int)
		l.balances[to] = balance
	}
	balance.Add(balance, amount)
}
