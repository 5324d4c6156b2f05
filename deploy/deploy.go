// Package deploy stands up a token pair and its pool the way the project's
// deployment script does: two 18-decimal tokens minted to the deployer, a pool
// over them, an optional plain-transfer prefund and an optional liquidity seed.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Defaults mirror the amounts used by the deployment and seeding scripts.
var (
	DefaultInitialSupply = units.MustParseEther("1000000")
	DefaultPrefund       = units.MustParseEther("500000")
	DefaultSeed          = units.MustParseEther("10000")
)

// TokenSpec describes one token to deploy.
type TokenSpec struct {
	Name   string
	Symbol string
}

type Config struct {
	Deployer      common.Address
	TokenA        TokenSpec
	TokenB        TokenSpec
	InitialSupply *uint256.Int // minted to Deployer for each token
	FeeBps        uint16

	// Prefund is sent to the pool with a plain transfer of each token and then
	// absorbed with Sync. Nil or zero skips it.
	Prefund *uint256.Int
	// SeedA and SeedB are deposited with AddLiquidity after any prefund. Both nil skips it.
	SeedA *uint256.Int
	SeedB *uint256.Int

	Registry prometheus.Registerer
	Logger   Logger
}

func (c *Config) validate() error {
	if c.Deployer == (common.Address{}) {
		return errors.New("config: Deployer cannot be the zero address")
	}
	if c.TokenA.Symbol == "" || c.TokenB.Symbol == "" {
		return errors.New("config: token symbols are required")
	}
	if c.InitialSupply == nil || c.InitialSupply.IsZero() {
		return errors.New("config: InitialSupply must be positive")
	}
	if (c.SeedA == nil) != (c.SeedB == nil) {
		return errors.New("config: SeedA and SeedB must be set together")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Deployment is the result of Deploy.
type Deployment struct {
	Deployer common.Address
	TokenA   *erc20.Ledger
	TokenB   *erc20.Ledger
	Pool     *reservepool.Pool
	// Shares minted to Deployer by the seed deposit, nil when not seeded.
	Shares *uint256.Int
}

// Ledgers returns both token ledgers in pair order.
func (d *Deployment) Ledgers() []*erc20.Ledger {
	return []*erc20.Ledger{d.TokenA, d.TokenB}
}

// Deploy creates the tokens and the pool. Addresses are derived from the deployer
// and nonces 0, 1 and 2, so a given deployer always gets the same addresses.
func Deploy(ctx context.Context, cfg Config) (*Deployment, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	logger.Info("Deploying contracts", "deployer", cfg.Deployer)

	tokenA, err := deployToken(cfg, cfg.TokenA, 0)
	if err != nil {
		return nil, err
	}
	logger.Info("Token deployed", "symbol", cfg.TokenA.Symbol, "address", tokenA.Address())

	tokenB, err := deployToken(cfg, cfg.TokenB, 1)
	if err != nil {
		return nil, err
	}
	logger.Info("Token deployed", "symbol", cfg.TokenB.Symbol, "address", tokenB.Address())

	pool, err := reservepool.New(reservepool.Config{
		Address:  crypto.CreateAddress(cfg.Deployer, 2),
		TokenA:   tokenA,
		TokenB:   tokenB,
		FeeBps:   cfg.FeeBps,
		Logger:   logger,
		Registry: cfg.Registry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	logger.Info("Pool deployed", "address", pool.Address(), "fee_bps", pool.FeeBps())

	d := &Deployment{Deployer: cfg.Deployer, TokenA: tokenA, TokenB: tokenB, Pool: pool}

	if cfg.Prefund != nil && !cfg.Prefund.IsZero() {
		if err := prefund(ctx, d, cfg.Prefund); err != nil {
			return nil, err
		}
		logger.Info("Initial liquidity added", "amount", units.FormatEther(cfg.Prefund))
	}

	if cfg.SeedA != nil {
		shares, err := Seed(ctx, d.Pool, d.TokenA, d.TokenB, cfg.Deployer, cfg.SeedA, cfg.SeedB)
		if err != nil {
			return nil, err
		}
		d.Shares = shares
		reserveA, reserveB := pool.Reserves()
		logger.Info("Liquidity seeded", "shares", shares.Dec(), "reserveA", units.FormatEther(reserveA), "reserveB", units.FormatEther(reserveB))
	}
	return d, nil
}

// Seed approves the pool for amountA and amountB on behalf of provider and deposits them.
func Seed(ctx context.Context, pool *reservepool.Pool, tokenA, tokenB *erc20.Ledger, provider common.Address, amountA, amountB *uint256.Int) (*uint256.Int, error) {
	if err := tokenA.Approve(ctx, provider, pool.Address(), amountA); err != nil {
		return nil, fmt.Errorf("approve %s: %w", tokenA.Meta().Symbol, err)
	}
	if err := tokenB.Approve(ctx, provider, pool.Address(), amountB); err != nil {
		return nil, fmt.Errorf("approve %s: %w", tokenB.Meta().Symbol, err)
	}
	shares, err := pool.AddLiquidity(ctx, provider, amountA, amountB)
	if err != nil {
		return nil, fmt.Errorf("add liquidity: %w", err)
	}
	return shares, nil
}

func deployToken(cfg Config, tok TokenSpec, nonce uint64) (*erc20.Ledger, error) {
	ledger, err := erc20.NewLedger(erc20.Token{
		Address:  crypto.CreateAddress(cfg.Deployer, nonce),
		Name:     tok.Name,
		Symbol:   tok.Symbol,
		Decimals: units.DefaultDecimals,
	}, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", tok.Symbol, err)
	}
	if err := ledger.Mint(cfg.Deployer, cfg.InitialSupply); err != nil {
		return nil, fmt.Errorf("failed to mint %s: %w", tok.Symbol, err)
	}
	return ledger, nil
}

// prefund transfers amount of each token straight to the pool, then syncs the
// reserves so they match custody again.
func prefund(ctx context.Context, d *Deployment, amount *uint256.Int) error {
	for _, token := range d.Ledgers() {
		if err := token.Transfer(ctx, d.Deployer, d.Pool.Address(), amount); err != nil {
			return fmt.Errorf("prefund %s: %w", token.Meta().Symbol, err)
		}
	}
	if err := d.Pool.Sync(ctx); err != nil {
		return fmt.Errorf("sync after prefund: %w", err)
	}
	return nil
}
