package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/streams/jsonrpc/client"
	"github.com/defistate/tokenswap-go/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	envRPCURL   = "SWAPD_RPC_URL"
	envDeployer = "DEPLOYER_ADDRESS"
)

func main() {
	envFile := pflag.String("env-file", ".env", "Optional dotenv file with "+envRPCURL+" and "+envDeployer+".")
	rpcURL := pflag.String("rpc", "", "Swap daemon RPC URL (default $"+envRPCURL+" or http://localhost:8545).")
	from := pflag.String("from", "", "Liquidity provider address (default $"+envDeployer+").")
	amountA := pflag.String("amount-a", "10000", "Amount of token A to deposit, in whole tokens.")
	amountB := pflag.String("amount-b", "10000", "Amount of token B to deposit, in whole tokens.")
	pflag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	closeApp := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		closeApp("Failed to load env file", err)
	}
	url := firstNonEmpty(*rpcURL, os.Getenv(envRPCURL), "http://localhost:8545")
	provider := firstNonEmpty(*from, os.Getenv(envDeployer))
	if !common.IsHexAddress(provider) {
		closeApp("Invalid provider address", fmt.Errorf("set --from or %s, got %q", envDeployer, provider))
	}

	liquidityA, err := units.ParseEther(*amountA)
	if err != nil {
		closeApp("Invalid amount-a", err)
	}
	liquidityB, err := units.ParseEther(*amountB)
	if err != nil {
		closeApp("Invalid amount-b", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caller, err := client.Dial(ctx, url)
	if err != nil {
		closeApp("Failed to connect", err)
	}
	defer caller.Close()

	if err := seed(ctx, caller, common.HexToAddress(provider), liquidityA, liquidityB, os.Stdout); err != nil {
		closeApp("Failed to add liquidity", err)
	}
}

// seed approves the pool for both amounts and deposits them, reporting balances
// and reserves before and after.
func seed(ctx context.Context, caller *client.Caller, provider common.Address, liquidityA, liquidityB *uint256.Int, out io.Writer) error {
	state, err := caller.State(ctx)
	if err != nil {
		return fmt.Errorf("fetch pool state: %w", err)
	}
	pool := state.Pool
	tokenA := tokenMeta(state.Tokens, pool.TokenA)
	tokenB := tokenMeta(state.Tokens, pool.TokenB)

	fmt.Fprintln(out, "=== Current Balances ===")
	if err := printBalances(ctx, caller, provider, tokenA, tokenB, out); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Current Reserves ===")
	if err := printReserves(ctx, caller, tokenA, tokenB, out); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Approving Tokens ===")
	for _, approval := range []struct {
		token  erc20.Token
		amount *uint256.Int
	}{{tokenA, liquidityA}, {tokenB, liquidityB}} {
		if err := caller.Approve(ctx, approval.token.Address, provider, pool.Address, approval.amount); err != nil {
			return fmt.Errorf("approve %s: %w", approval.token.Symbol, err)
		}
		fmt.Fprintf(out, "%s approved\n", approval.token.Symbol)
	}

	fmt.Fprintln(out, "\n=== Adding Liquidity ===")
	fmt.Fprintf(out, "Adding %s %s and %s %s...\n",
		units.FormatUnits(liquidityA, tokenA.Decimals), tokenA.Symbol,
		units.FormatUnits(liquidityB, tokenB.Decimals), tokenB.Symbol)
	shares, err := caller.AddLiquidity(ctx, provider, liquidityA, liquidityB)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Liquidity added, %s shares minted\n", shares.Dec())

	fmt.Fprintln(out, "\n=== Updated Reserves ===")
	if err := printReserves(ctx, caller, tokenA, tokenB, out); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Your Remaining Balances ===")
	return printBalances(ctx, caller, provider, tokenA, tokenB, out)
}

func printBalances(ctx context.Context, caller *client.Caller, owner common.Address, tokenA, tokenB erc20.Token, out io.Writer) error {
	for _, token := range []erc20.Token{tokenA, tokenB} {
		balance, err := caller.BalanceOf(ctx, token.Address, owner)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", token.Symbol, err)
		}
		fmt.Fprintf(out, "Your %s balance: %s\n", token.Symbol, units.FormatUnits(balance, token.Decimals))
	}
	return nil
}

func printReserves(ctx context.Context, caller *client.Caller, tokenA, tokenB erc20.Token, out io.Writer) error {
	reserves, err := caller.Reserves(ctx)
	if err != nil {
		return fmt.Errorf("fetch reserves: %w", err)
	}
	fmt.Fprintf(out, "Reserve A: %s %s\n", units.FormatUnits(reserves.ReserveA, tokenA.Decimals), tokenA.Symbol)
	fmt.Fprintf(out, "Reserve B: %s %s\n", units.FormatUnits(reserves.ReserveB, tokenB.Decimals), tokenB.Symbol)
	return nil
}

// tokenMeta finds the metadata for address, falling back to an 18-decimal token named after it.
func tokenMeta(tokens []erc20.Token, address common.Address) erc20.Token {
	for _, t := range tokens {
		if t.Address == address {
			return t
		}
	}
	return erc20.Token{Address: address, Symbol: address.Hex(), Decimals: units.DefaultDecimals}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
