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
	"strings"
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
	envTrader   = "TRADER_ADDRESS"
	envDeployer = "DEPLOYER_ADDRESS"

	basisPoints = 10_000
)

var errInvalidSlippage = errors.New("slippage must be below 10000 bps")

func main() {
	envFile := pflag.String("env-file", ".env", "Optional dotenv file with "+envRPCURL+" and "+envTrader+".")
	rpcURL := pflag.String("rpc", "", "Swap daemon RPC URL (default $"+envRPCURL+" or http://localhost:8545).")
	from := pflag.String("from", "", "Trader address (default $"+envTrader+", then $"+envDeployer+").")
	direction := pflag.String("direction", "a-to-b", "Swap direction: a-to-b or b-to-a.")
	amount := pflag.String("amount", "", "Amount of the input token to sell, in whole tokens.")
	slippageBps := pflag.Uint16("slippage-bps", 50, "Accepted drop below the quoted output, in basis points.")
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
	trader := firstNonEmpty(*from, os.Getenv(envTrader), os.Getenv(envDeployer))
	if !common.IsHexAddress(trader) {
		closeApp("Invalid trader address", fmt.Errorf("set --from or %s, got %q", envTrader, trader))
	}
	aForB, err := parseDirection(*direction)
	if err != nil {
		closeApp("Invalid direction", err)
	}
	amountIn, err := units.ParseEther(*amount)
	if err != nil {
		closeApp("Invalid amount", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caller, err := client.Dial(ctx, url)
	if err != nil {
		closeApp("Failed to connect", err)
	}
	defer caller.Close()

	if _, err := swap(ctx, caller, common.HexToAddress(trader), aForB, amountIn, *slippageBps, os.Stdout); err != nil {
		closeApp("Failed to swap", err)
	}
}

// swap quotes amountIn against the current reserves, approves the pool for it and
// sells it with a minimum output of the quote less slippageBps.
func swap(ctx context.Context, caller *client.Caller, trader common.Address, aForB bool, amountIn *uint256.Int, slippageBps uint16, out io.Writer) (*uint256.Int, error) {
	state, err := caller.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pool state: %w", err)
	}
	pool := state.Pool
	tokenIn := tokenMeta(state.Tokens, pool.TokenA)
	tokenOut := tokenMeta(state.Tokens, pool.TokenB)
	if !aForB {
		tokenIn, tokenOut = tokenOut, tokenIn
	}

	quoted, err := caller.GetAmountOut(ctx, tokenIn.Address, amountIn)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	minOut, err := minAmountOut(quoted, slippageBps)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "=== Quote ===")
	fmt.Fprintf(out, "Selling %s %s for about %s %s (minimum %s at %d bps slippage)\n",
		units.FormatUnits(amountIn, tokenIn.Decimals), tokenIn.Symbol,
		units.FormatUnits(quoted, tokenOut.Decimals), tokenOut.Symbol,
		units.FormatUnits(minOut, tokenOut.Decimals), slippageBps)

	fmt.Fprintln(out, "\n=== Approving ===")
	if err := caller.Approve(ctx, tokenIn.Address, trader, pool.Address, amountIn); err != nil {
		return nil, fmt.Errorf("approve %s: %w", tokenIn.Symbol, err)
	}
	fmt.Fprintf(out, "%s approved\n", tokenIn.Symbol)

	fmt.Fprintln(out, "\n=== Swapping ===")
	var received *uint256.Int
	if aForB {
		received, err = caller.SwapAForB(ctx, trader, amountIn, minOut)
	} else {
		received, err = caller.SwapBForA(ctx, trader, amountIn, minOut)
	}
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Received %s %s\n", units.FormatUnits(received, tokenOut.Decimals), tokenOut.Symbol)

	reserves, err := caller.Reserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch reserves: %w", err)
	}
	fmt.Fprintln(out, "\n=== Updated Reserves ===")
	fmt.Fprintf(out, "Reserve A: %s\n", units.FormatUnits(reserves.ReserveA, tokenMeta(state.Tokens, pool.TokenA).Decimals))
	fmt.Fprintf(out, "Reserve B: %s\n", units.FormatUnits(reserves.ReserveB, tokenMeta(state.Tokens, pool.TokenB).Decimals))

	fmt.Fprintln(out, "\n=== Your Balances ===")
	for _, token := range []erc20.Token{tokenIn, tokenOut} {
		balance, err := caller.BalanceOf(ctx, token.Address, trader)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", token.Symbol, err)
		}
		fmt.Fprintf(out, "Your %s balance: %s\n", token.Symbol, units.FormatUnits(balance, token.Decimals))
	}
	return received, nil
}

// minAmountOut returns quoted less slippageBps, rounded down.
func minAmountOut(quoted *uint256.Int, slippageBps uint16) (*uint256.Int, error) {
	if slippageBps >= basisPoints {
		return nil, fmt.Errorf("%w: got %d", errInvalidSlippage, slippageBps)
	}
	keep := uint256.NewInt(uint64(basisPoints - slippageBps))
	// keep/basisPoints < 1, so the quotient never exceeds quoted.
	minOut, _ := new(uint256.Int).MulDivOverflow(quoted, keep, uint256.NewInt(basisPoints))
	return minOut, nil
}

func parseDirection(direction string) (aForB bool, err error) {
	switch strings.ToLower(direction) {
	case "a-to-b", "a", "ab":
		return true, nil
	case "b-to-a", "b", "ba":
		return false, nil
	default:
		return false, fmt.Errorf("unknown direction %q, want a-to-b or b-to-a", direction)
	}
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
