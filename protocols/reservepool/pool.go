package reservepool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defistate/tokenswap-go/protocols/reservepool/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opAddLiquidity    = "add_liquidity"
	opRemoveLiquidity = "remove_liquidity"
	opSwapAForB       = "swap_a_for_b"
	opSwapBForA       = "swap_b_for_a"
	opSync            = "sync"
	opSkim            = "skim"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Token is the ERC-20 surface the pool needs from each side of its pair.
// Implementations must apply each call fully or not at all.
type Token interface {
	Address() common.Address
	BalanceOf(owner common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error
}

// Config holds the immutable parameters and dependencies of a pool.
type Config struct {
	Address  common.Address
	TokenA   Token
	TokenB   Token
	FeeBps   uint16 // zero selects calculator.DefaultFeeBps
	Logger   Logger
	Registry prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Address == (common.Address{}) {
		return errors.New("config: Address cannot be the zero address")
	}
	if c.TokenA == nil || c.TokenB == nil {
		return errors.New("config: TokenA and TokenB are required")
	}
	if c.TokenA.Address() == c.TokenB.Address() {
		return fmt.Errorf("config: TokenA and TokenB must differ (both %s)", c.TokenA.Address())
	}
	if err := calculator.ValidateFee(c.FeeBps); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	return nil
}

// enteredKey marks a context as being inside a mutating call of one specific pool.
type enteredKey struct{ pool *Pool }

// Pool is a two-token constant-product reserve pool.
//
// Mutations are serialized by mu and numbered by sequence. A commit is published as an
// immutable State through an atomic pointer once all of its transfers have settled, so
// reserve reads never take the lock and never observe a commit that is later rolled back.
type Pool struct {
	address common.Address
	tokenA  Token
	tokenB  Token
	feeBps  uint16

	mu          sync.Mutex
	reserveA    uint256.Int
	reserveB    uint256.Int
	totalShares uint256.Int
	sequence    uint64

	// sharesMu guards shares; writers also hold mu.
	sharesMu sync.RWMutex
	shares   map[common.Address]*uint256.Int

	view atomic.Pointer[State]

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}

	logger  Logger
	metrics *Metrics
}

// New creates an unseeded pool for the configured token pair.
func New(cfg Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	feeBps := cfg.FeeBps
	if feeBps == 0 {
		feeBps = calculator.DefaultFeeBps
	}

	p := &Pool{
		address:  cfg.Address,
		tokenA:   cfg.TokenA,
		tokenB:   cfg.TokenB,
		feeBps:   feeBps,
		shares:   make(map[common.Address]*uint256.Int),
		watchers: make(map[chan struct{}]struct{}),
		logger:   cfg.Logger,
		metrics:  NewMetrics(cfg.Registry, cfg.Address.Hex()),
	}

	s := p.snapshot()
	p.view.Store(s)
	p.metrics.setState(s)
	return p, nil
}

func (p *Pool) Address() common.Address { return p.address }
func (p *Pool) TokenA() common.Address  { return p.tokenA.Address() }
func (p *Pool) TokenB() common.Address  { return p.tokenB.Address() }
func (p *Pool) FeeBps() uint16          { return p.feeBps }

// --- Write Methods ---

// AddLiquidity pulls amountA of tokenA and amountB of tokenB from provider and adds
// them to the reserves. It returns the shares minted to provider.
func (p *Pool) AddLiquidity(ctx context.Context, provider common.Address, amountA, amountB *uint256.Int) (minted *uint256.Int, err error) {
	start := time.Now()
	defer func() { p.track(opAddLiquidity, start, err) }()

	ctx, err = p.enter(ctx)
	if err != nil {
		return nil, err
	}
	if isZero(amountA) || isZero(amountB) {
		return nil, fmt.Errorf("%w: addLiquidity(%s, %s)", ErrZeroAmount, dec(amountA), dec(amountB))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 1. Checks. Nothing below may fail after the first pull except the pulls themselves.
	if err := p.checkFunds(p.tokenA, provider, amountA); err != nil {
		return nil, err
	}
	if err := p.checkFunds(p.tokenB, provider, amountB); err != nil {
		return nil, err
	}
	newReserveA, overflow := new(uint256.Int).AddOverflow(&p.reserveA, amountA)
	if overflow {
		return nil, fmt.Errorf("%w: reserveA %s + %s", ErrArithmeticOverflow, p.reserveA.Dec(), amountA.Dec())
	}
	newReserveB, overflow := new(uint256.Int).AddOverflow(&p.reserveB, amountB)
	if overflow {
		return nil, fmt.Errorf("%w: reserveB %s + %s", ErrArithmeticOverflow, p.reserveB.Dec(), amountB.Dec())
	}
	minted, err = calculator.SharesForDeposit(amountA, amountB, &p.reserveA, &p.reserveB, &p.totalShares)
	if err != nil {
		return nil, err
	}
	newTotalShares, overflow := new(uint256.Int).AddOverflow(&p.totalShares, minted)
	if overflow {
		return nil, fmt.Errorf("%w: total shares", ErrArithmeticOverflow)
	}

	// 2. Pull both sides; a failed second pull hands the first one back.
	if err := p.tokenA.TransferFrom(ctx, p.address, provider, p.address, amountA); err != nil {
		return nil, fmt.Errorf("pull tokenA: %w", err)
	}
	if err := p.tokenB.TransferFrom(ctx, p.address, provider, p.address, amountB); err != nil {
		return nil, errors.Join(fmt.Errorf("pull tokenB: %w", err), p.refund(ctx, p.tokenA, provider, amountA))
	}

	// 3. Commit.
	p.reserveA.Set(newReserveA)
	p.reserveB.Set(newReserveB)
	p.totalShares.Set(newTotalShares)
	p.creditShares(provider, minted)
	state := p.commit()
	p.publish(state)

	if minted.IsZero() {
		p.logger.Warn("Deposit minted no shares", "provider", provider, "amountA", amountA.Dec(), "amountB", amountB.Dec())
	}
	p.logger.Info("Liquidity added",
		"provider", provider,
		"amountA", amountA.Dec(),
		"amountB", amountB.Dec(),
		"shares", minted.Dec(),
		"sequence", state.Sequence,
	)
	return minted, nil
}

// RemoveLiquidity burns shares owned by provider and pays out the matching part of
// both reserves, rounded down. minA and minB are optional lower bounds.
func (p *Pool) RemoveLiquidity(ctx context.Context, provider common.Address, shares, minA, minB *uint256.Int) (amountA, amountB *uint256.Int, err error) {
	start := time.Now()
	defer func() { p.track(opRemoveLiquidity, start, err) }()

	ctx, err = p.enter(ctx)
	if err != nil {
		return nil, nil, err
	}
	if isZero(shares) {
		return nil, nil, fmt.Errorf("%w: removeLiquidity shares", ErrZeroAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	owned := p.SharesOf(provider)
	if owned.Lt(shares) {
		return nil, nil, fmt.Errorf("%w: %s owns %s, burning %s", ErrInsufficientShares, provider, owned.Dec(), shares.Dec())
	}
	if provider == (common.Address{}) {
		return nil, nil, fmt.Errorf("%w: cannot pay out to the zero address", ErrZeroAddress)
	}
	amountA, amountB, err = calculator.AmountsForShares(shares, &p.reserveA, &p.reserveB, &p.totalShares)
	if err != nil {
		return nil, nil, err
	}
	if amountA.IsZero() && amountB.IsZero() {
		return nil, nil, fmt.Errorf("%w: burning %s shares redeems nothing", ErrInsufficientLiquidity, shares.Dec())
	}
	if minA != nil && amountA.Lt(minA) {
		return nil, nil, fmt.Errorf("%w: amountA %s < min %s", ErrSlippageExceeded, amountA.Dec(), minA.Dec())
	}
	if minB != nil && amountB.Lt(minB) {
		return nil, nil, fmt.Errorf("%w: amountB %s < min %s", ErrSlippageExceeded, amountB.Dec(), minB.Dec())
	}
	if err := p.checkCustody(amountA, amountB); err != nil {
		return nil, nil, err
	}

	// Effects before interactions.
	rollback := p.checkpoint()
	p.reserveA.Sub(&p.reserveA, amountA)
	p.reserveB.Sub(&p.reserveB, amountB)
	p.totalShares.Sub(&p.totalShares, shares)
	p.debitShares(provider, shares)
	state := p.commit()

	if err := p.push(ctx, p.tokenA, provider, amountA); err != nil {
		rollback()
		return nil, nil, fmt.Errorf("push tokenA: %w", err)
	}
	if err := p.push(ctx, p.tokenB, provider, amountB); err != nil {
		pushErr := fmt.Errorf("push tokenB: %w", err)
		if reclaimErr := p.reclaim(ctx, p.tokenA, provider, amountA); reclaimErr != nil {
			// tokenA has left the pool for good. Settle the burn without tokenB so the
			// reserves never count tokens the pool no longer holds.
			p.reserveB.Add(&p.reserveB, amountB)
			state = p.snapshot()
			p.publish(state)
			p.logger.Error("Withdrawal settled without tokenB",
				"provider", provider,
				"shares", shares.Dec(),
				"amountA", amountA.Dec(),
				"forfeitedB", amountB.Dec(),
				"sequence", state.Sequence,
			)
			return nil, nil, errors.Join(pushErr, reclaimErr)
		}
		rollback()
		return nil, nil, pushErr
	}
	p.publish(state)

	p.logger.Info("Liquidity removed",
		"provider", provider,
		"shares", shares.Dec(),
		"amountA", amountA.Dec(),
		"amountB", amountB.Dec(),
		"status", state.Status(),
		"sequence", state.Sequence,
	)
	return amountA, amountB, nil
}

// SwapAForB sells amountIn of tokenA for tokenB. minAmountOut may be nil.
func (p *Pool) SwapAForB(ctx context.Context, trader common.Address, amountIn, minAmountOut *uint256.Int) (*uint256.Int, error) {
	return p.swap(ctx, opSwapAForB, trader, true, amountIn, minAmountOut)
}

// SwapBForA sells amountIn of tokenB for tokenA. minAmountOut may be nil.
func (p *Pool) SwapBForA(ctx context.Context, trader common.Address, amountIn, minAmountOut *uint256.Int) (*uint256.Int, error) {
	return p.swap(ctx, opSwapBForA, trader, false, amountIn, minAmountOut)
}

// Swap sells amountIn of tokenIn for the other token of the pair.
func (p *Pool) Swap(ctx context.Context, trader, tokenIn common.Address, amountIn, minAmountOut *uint256.Int) (*uint256.Int, error) {
	switch tokenIn {
	case p.tokenA.Address():
		return p.SwapAForB(ctx, trader, amountIn, minAmountOut)
	case p.tokenB.Address():
		return p.SwapBForA(ctx, trader, amountIn, minAmountOut)
	default:
		return nil, fmt.Errorf("%w: pool %s does not trade %s", ErrTokenMismatch, p.address, tokenIn)
	}
}

func (p *Pool) swap(ctx context.Context, op string, trader common.Address, aForB bool, amountIn, minAmountOut *uint256.Int) (amountOut *uint256.Int, err error) {
	start := time.Now()
	defer func() { p.track(op, start, err) }()

	ctx, err = p.enter(ctx)
	if err != nil {
		return nil, err
	}
	if isZero(amountIn) {
		return nil, fmt.Errorf("%w: %s amountIn", ErrZeroAmount, op)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tokenIn, tokenOut := p.tokenA, p.tokenB
	reserveIn, reserveOut := &p.reserveA, &p.reserveB
	if !aForB {
		tokenIn, tokenOut = p.tokenB, p.tokenA
		reserveIn, reserveOut = &p.reserveB, &p.reserveA
	}

	// 1. Checks.
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("%w: pool %s is unseeded", ErrInsufficientLiquidity, p.address)
	}
	if err := p.checkFunds(tokenIn, trader, amountIn); err != nil {
		return nil, err
	}
	amountOut, newReserveIn, newReserveOut, err := calculator.SimulateSwap(amountIn, reserveIn, reserveOut, p.feeBps)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, fmt.Errorf("%w: %s in buys nothing", ErrInsufficientOutputAmount, amountIn.Dec())
	}
	if minAmountOut != nil && amountOut.Lt(minAmountOut) {
		return nil, fmt.Errorf("%w: amountOut %s < min %s", ErrSlippageExceeded, amountOut.Dec(), minAmountOut.Dec())
	}
	if calculator.Invariant(newReserveIn, newReserveOut).Cmp(calculator.Invariant(reserveIn, reserveOut)) < 0 {
		return nil, fmt.Errorf("%w: swap would decrease the invariant", calculator.ErrInvalidState)
	}

	// 2. Pull the input.
	if err := tokenIn.TransferFrom(ctx, p.address, trader, p.address, amountIn); err != nil {
		return nil, fmt.Errorf("pull %s: %w", tokenIn.Address(), err)
	}

	// 3. Effects before the outgoing transfer. The view is published once the output has left.
	rollback := p.checkpoint()
	reserveIn.Set(newReserveIn)
	reserveOut.Set(newReserveOut)
	state := p.commit()

	// 4. Push the output.
	if err := tokenOut.Transfer(ctx, p.address, trader, amountOut); err != nil {
		rollback()
		return nil, errors.Join(fmt.Errorf("push %s: %w", tokenOut.Address(), err), p.refund(ctx, tokenIn, trader, amountIn))
	}
	p.publish(state)

	p.logger.Debug("Swapped",
		"op", op,
		"trader", trader,
		"amountIn", amountIn.Dec(),
		"amountOut", amountOut.Dec(),
		"sequence", state.Sequence,
	)
	return amountOut, nil
}

// Sync sets the reserves to the pool's actual token balances. It absorbs tokens sent
// to the pool with a plain transfer, which bypasses reserve accounting.
func (p *Pool) Sync(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { p.track(opSync, start, err) }()

	if _, err = p.enter(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	balanceA := p.tokenA.BalanceOf(p.address)
	balanceB := p.tokenB.BalanceOf(p.address)
	if balanceA.Eq(&p.reserveA) && balanceB.Eq(&p.reserveB) {
		return nil
	}

	p.logger.Info("Syncing reserves to balances",
		"reserveA", p.reserveA.Dec(), "balanceA", balanceA.Dec(),
		"reserveB", p.reserveB.Dec(), "balanceB", balanceB.Dec(),
	)
	p.reserveA.Set(balanceA)
	p.reserveB.Set(balanceB)
	p.publish(p.commit())
	return nil
}

// Skim sends any custody above the reserves to `to` and returns the amounts sent.
func (p *Pool) Skim(ctx context.Context, to common.Address) (amountA, amountB *uint256.Int, err error) {
	start := time.Now()
	defer func() { p.track(opSkim, start, err) }()

	ctx, err = p.enter(ctx)
	if err != nil {
		return nil, nil, err
	}

	if to == (common.Address{}) {
		return nil, nil, fmt.Errorf("%w: cannot skim to the zero address", ErrZeroAddress)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Excess is unaccounted custody, so each side can leave on its own without
	// touching the reserves.
	amountA, amountB = p.excess(&p.reserveA, &p.reserveB)
	if err := p.push(ctx, p.tokenA, to, amountA); err != nil {
		return nil, nil, fmt.Errorf("skim tokenA: %w", err)
	}
	if err := p.push(ctx, p.tokenB, to, amountB); err != nil {
		p.logger.Warn("Skim of tokenB failed after tokenA was sent", "to", to, "amountA", amountA.Dec(), "error", err)
		return amountA, new(uint256.Int), fmt.Errorf("skim tokenB: %w", err)
	}
	if !amountA.IsZero() || !amountB.IsZero() {
		p.logger.Info("Skimmed excess", "to", to, "amountA", amountA.Dec(), "amountB", amountB.Dec())
	}
	return amountA, amountB, nil
}

// --- Watchers ---

// Watch returns a channel that receives a signal after commits. Signals coalesce:
// a slow reader sees one pending signal, then reads the latest View.
// The returned cancel func must be called to release the watcher.
func (p *Pool) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	p.watchMu.Lock()
	p.watchers[ch] = struct{}{}
	p.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.watchMu.Lock()
			delete(p.watchers, ch)
			p.watchMu.Unlock()
		})
	}
}

// --- Internal ---

// enter rejects a context already inside a mutating call of this pool or already
// done, and returns the context to hand to token calls. That context keeps the
// caller's values but is never canceled: once admitted, an operation runs to completion.
func (p *Pool) enter(ctx context.Context) (context.Context, error) {
	if ctx.Value(enteredKey{p}) != nil {
		return nil, fmt.Errorf("%w: pool %s", ErrReentrantCall, p.address)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return context.WithValue(context.WithoutCancel(ctx), enteredKey{p}, struct{}{}), nil
}

func (p *Pool) track(op string, start time.Time, err error) {
	p.metrics.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	p.metrics.observe(op, err)
}

func (p *Pool) checkFunds(token Token, owner common.Address, amount *uint256.Int) error {
	if allowance := token.Allowance(owner, p.address); allowance.Lt(amount) {
		return fmt.Errorf("%w: %s approved %s of %s to pool, need %s", ErrInsufficientAllowance, owner, allowance.Dec(), token.Address(), amount.Dec())
	}
	if balance := token.BalanceOf(owner); balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, need %s", ErrInsufficientBalance, owner, balance.Dec(), token.Address(), amount.Dec())
	}
	return nil
}

// checkCustody MUST be called with p.mu held.
func (p *Pool) checkCustody(amountA, amountB *uint256.Int) error {
	if p.tokenA.BalanceOf(p.address).Lt(amountA) || p.tokenB.BalanceOf(p.address).Lt(amountB) {
		return fmt.Errorf("%w: pool custody is below its reserves", calculator.ErrInvalidState)
	}
	return nil
}

func (p *Pool) push(ctx context.Context, token Token, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	return token.Transfer(ctx, p.address, to, amount)
}

// refund hands a pulled amount back after a failed operation. A failed refund leaves
// custody above the reserves, where Skim can recover it.
func (p *Pool) refund(ctx context.Context, token Token, to common.Address, amount *uint256.Int) error {
	if err := p.push(ctx, token, to, amount); err != nil {
		p.logger.Error("Refund failed", "token", token.Address(), "to", to, "amount", amount.Dec(), "error", err)
		return fmt.Errorf("refund %s: %w", token.Address(), err)
	}
	return nil
}

// reclaim pulls back an amount already pushed to `from` when a later push fails.
// It goes through from's allowance to the pool like any other pull.
func (p *Pool) reclaim(ctx context.Context, token Token, from common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := token.TransferFrom(ctx, p.address, from, p.address, amount); err != nil {
		p.logger.Error("Reclaim failed", "token", token.Address(), "from", from, "amount", amount.Dec(), "error", err)
		return fmt.Errorf("reclaim %s: %w", token.Address(), err)
	}
	return nil
}

// checkpoint captures the mutable state and returns a func restoring it. The view
// needs no restoring: it is only stored by publish.
// MUST be called with p.mu held.
func (p *Pool) checkpoint() func() {
	reserveA, reserveB, totalShares := p.reserveA, p.reserveB, p.totalShares
	sequence := p.sequence

	p.sharesMu.RLock()
	shares := make(map[common.Address]*uint256.Int, len(p.shares))
	for k, v := range p.shares {
		shares[k] = v.Clone()
	}
	p.sharesMu.RUnlock()

	return func() {
		p.reserveA, p.reserveB, p.totalShares = reserveA, reserveB, totalShares
		p.sequence = sequence
		p.sharesMu.Lock()
		p.shares = shares
		p.sharesMu.Unlock()
	}
}

// commit advances the sequence and snapshots the new state. MUST be called with p.mu held.
func (p *Pool) commit() *State {
	p.sequence++
	return p.snapshot()
}

// publish stores a settled commit as the view, records metrics and signals watchers.
// MUST be called with p.mu held.
func (p *Pool) publish(s *State) {
	p.view.Store(s)
	p.metrics.setState(s)

	p.watchMu.Lock()
	defer p.watchMu.Unlock()
	for ch := range p.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *Pool) snapshot() *State {
	return &State{
		Address:     p.address,
		TokenA:      p.tokenA.Address(),
		TokenB:      p.tokenB.Address(),
		ReserveA:    p.reserveA.Clone(),
		ReserveB:    p.reserveB.Clone(),
		TotalShares: p.totalShares.Clone(),
		FeeBps:      p.feeBps,
		Sequence:    p.sequence,
	}
}

// excess returns the custody held above reserveA and reserveB.
func (p *Pool) excess(reserveA, reserveB *uint256.Int) (amountA, amountB *uint256.Int) {
	amountA, amountB = new(uint256.Int), new(uint256.Int)
	if balance := p.tokenA.BalanceOf(p.address); balance.Gt(reserveA) {
		amountA.Sub(balance, reserveA)
	}
	if balance := p.tokenB.BalanceOf(p.address); balance.Gt(reserveB) {
		amountB.Sub(balance, reserveB)
	}
	return amountA, amountB
}

func (p *Pool) creditShares(provider common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	p.sharesMu.Lock()
	defer p.sharesMu.Unlock()
	owned, ok := p.shares[provider]
	if !ok {
		owned = new(uint256.Int)
		p.shares[provider] = owned
	}
	// owned <= totalShares, which was checked for overflow.
	owned.Add(owned, amount)
}

func (p *Pool) debitShares(provider common.Address, amount *uint256.Int) {
	p.sharesMu.Lock()
	defer p.sharesMu.Unlock()
	owned := p.shares[provider]
	owned.Sub(owned, amount)
	if owned.IsZero() {
		delete(p.shares, provider)
	}
}

func isZero(x *uint256.Int) bool {
	return x == nil || x.IsZero()
}

func dec(x *uint256.Int) string {
	if x == nil {
		return "<nil>"
	}
	return x.Dec()
}
