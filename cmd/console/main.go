package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/patcher"
	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/protocols/reservepool/calculator"
	"github.com/defistate/tokenswap-go/streams/jsonrpc/client"
	"github.com/defistate/tokenswap-go/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/pflag"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"

	DefaultClientStateBufferSize = 100
)

// header prints a styled section header
func header(title string) {
	fmt.Println("\n" + Bold + Cyan + ":: " + title + " ::" + Reset)
}

// SafeState is a thread-safe container for the latest engine state.
type SafeState struct {
	mu    sync.RWMutex
	state *engine.State
}

func (s *SafeState) Update(newState *engine.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newState
}

func (s *SafeState) Get() *engine.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func main() {
	url := pflag.String("url", "ws://localhost:8545/ws", "Websocket URL of the swap daemon.")
	logPath := pflag.String("log-file", "console.log", "File the console writes its logs to.")
	pflag.Parse()

	// --- 1. SETUP LOGGING (To File) ---
	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("Failed to open log file: %v", err))
	}
	defer logFile.Close()

	rootLogger := slog.New(slog.NewJSONHandler(logFile, nil))

	closeApp := func() {
		fmt.Println("\n" + Red + "Fatal error occurred. Check " + *logPath + " for details." + Reset)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. INITIALIZE CLIENT ---
	statePatcher, err := patcher.NewStatePatcher(&patcher.StatePatcherConfig{})
	if err != nil {
		rootLogger.Error("Failed to initialize state patcher", "error", err)
		closeApp()
	}

	client, err := client.NewClient(
		ctx,
		client.Config{
			URL:          *url,
			Logger:       rootLogger.With("component", "jsonrpc-client"),
			BufferSize:   DefaultClientStateBufferSize,
			StatePatcher: statePatcher.Patch,
		},
	)
	if err != nil {
		rootLogger.Error("Failed to initialize Client", "url", *url, "error", err)
		closeApp()
	}

	// --- 3. START CONSOLE & STATE LOOP ---
	safeState := &SafeState{}

	fmt.Println(Green + "Starting Token Swap Console..." + Reset)
	fmt.Println("Logs are being written to '" + *logPath + "'")
	go runConsole(ctx, safeState)

	for {
		select {
		case n := <-client.State():
			safeState.Update(n)

		case err, ok := <-client.Err():
			if ok {
				rootLogger.Error("Fatal client error", "error", err)
				closeApp()
			}

		case <-ctx.Done():
			fmt.Println("\n" + Yellow + "Shutting down..." + Reset)
			return
		}
	}
}

// runConsole handles user input and display.
func runConsole(ctx context.Context, safeState *SafeState) {
	reader := bufio.NewReader(os.Stdin)
	time.Sleep(500 * time.Millisecond)

	for {
		if ctx.Err() != nil {
			return
		}

		printMenu()

		fmt.Print(Bold + "Enter selection: " + Reset)
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("Error reading input:", err)
			continue
		}
		input = strings.TrimSpace(input)

		handleCommand(input, safeState, reader)

		fmt.Println("\n" + Gray + "[Press Enter to continue]" + Reset)
		reader.ReadString('\n')
	}
}

func printMenu() {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(Bold + "TOKEN SWAP CONSOLE" + Reset + Gray + " | v0.1.0" + Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %s1.%s Pool Status\n", Cyan, Reset)
	fmt.Printf(" %s2.%s Reserves & Prices\n", Cyan, Reset)
	fmt.Printf(" %s3.%s Quote Swap %s(Exact Input)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Printf(" %s4.%s Watch Pool %s(Live Monitor)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %sh.%s Help\n", Yellow, Reset)
	fmt.Printf(" %sq.%s Quit\n", Red, Reset)
	fmt.Println("")
}

func handleCommand(input string, safeState *SafeState, reader *bufio.Reader) {
	state := safeState.Get()

	// Allow help and quit even if state isn't ready
	if state == nil && input != "q" && input != "h" {
		fmt.Println("\n" + Yellow + "[INFO] Waiting for first state update... (Check connection/logs)" + Reset)
		return
	}

	switch input {
	case "1":
		printStatus(state)
	case "2":
		printReserves(state)
	case "3":
		quoteSwap(state, reader)
	case "4":
		watchPool(safeState, reader)
	case "h":
		printHelp()
	case "q":
		exitConsole()
	default:
		fmt.Println(Red + "Unknown command." + Reset)
	}
}

// --- COMMAND HANDLERS ---

func printHelp() {
	fmt.Print("\033[H\033[2J")

	header("TOKEN SWAP STREAM")
	fmt.Println("The daemon streams one " + Cyan + "State" + Reset + " per pool commit:")
	fmt.Println("   - " + Yellow + "Sequence" + Reset + ": position in the pool's commit log.")
	fmt.Println("   - " + Yellow + "Reserves" + Reset + ": the amounts of each token the pool prices against.")
	fmt.Println("   - " + Yellow + "Total Shares" + Reset + ": outstanding liquidity shares.")
	fmt.Println("")
	fmt.Println(Bold + "PRICING" + Reset)
	fmt.Println("   out = reserveOut * in * (10000 - fee) / (reserveIn * 10000 + in * (10000 - fee))")
	fmt.Println("   Quotes in this console are computed locally against the last streamed state.")
	fmt.Println("   They match what the pool pays only if no other commit lands first.")
	fmt.Println(Gray + "---------------------------------------------------------------" + Reset)
}

func printStatus(state *engine.State) {
	ts := time.Unix(0, int64(state.Timestamp)).Format("15:04:05")
	pool := state.Pool

	status := Yellow + string(pool.Status()) + Reset
	if pool.Status() == reservepool.StatusActive {
		status = Green + string(pool.Status()) + Reset
	}

	fmt.Printf("\n%sSTATUS  ::%s Sequence %s#%d%s | Chain %s%d%s | Time %s%s%s | %s\n",
		Green, Reset,
		Bold, pool.Sequence, Reset,
		Bold, state.ChainID, Reset,
		Bold, ts, Reset,
		status,
	)
	fmt.Printf(" %s%-10s%s %s\n", Gray, "Pool:", Reset, pool.Address.Hex())
	fmt.Printf(" %s%-10s%s %d bps\n", Gray, "Fee:", Reset, pool.FeeBps)
}

func printReserves(state *engine.State) {
	pool := state.Pool
	tokenA := tokenOf(state, pool.TokenA)
	tokenB := tokenOf(state, pool.TokenB)

	header("RESERVES")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tRESERVE\tSPOT PRICE\tADDRESS\t")
	fmt.Fprintln(w, "-----\t-------\t----------\t-------\t")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", tokenA.Symbol, units.FormatUnits(pool.ReserveA, tokenA.Decimals), spotPrice(pool.ReserveA, pool.ReserveB, tokenA, tokenB), tokenA.Address.Hex())
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", tokenB.Symbol, units.FormatUnits(pool.ReserveB, tokenB.Decimals), spotPrice(pool.ReserveB, pool.ReserveA, tokenB, tokenA), tokenB.Address.Hex())
	w.Flush()

	fmt.Printf("\n%sTotal Shares:%s %s\n", Bold, Reset, pool.TotalShares.Dec())
}

func quoteSwap(state *engine.State, reader *bufio.Reader) {
	pool := state.Pool
	header("QUOTE SWAP")

	fmt.Print(Bold + "1. Enter Input Token (symbol or address): " + Reset)
	tokenIn, err := readToken(state, reader)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}
	tokenOutAddr, _ := pool.Counterpart(tokenIn.Address)
	tokenOut := tokenOf(state, tokenOutAddr)

	fmt.Print(Bold + "2. Enter Input Amount (e.g. 1.5): " + Reset)
	amountInput, _ := reader.ReadString('\n')
	amountIn, err := units.ParseUnits(strings.TrimSpace(amountInput), tokenIn.Decimals)
	if err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}

	reserveIn, reserveOut, err := reservepool.GetReserves(tokenIn.Address, tokenOut.Address, pool)
	if err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	amountOut, err := calculator.GetAmountOut(amountIn, reserveIn, reserveOut, pool.FeeBps)
	if err != nil {
		fmt.Printf(Red+"[ERROR] Quote failed: %v%s\n", err, Reset)
		return
	}

	header("QUOTE")
	fmt.Printf("%sIn:%s  %s %s (Raw: %s)\n", Bold, Reset, units.FormatUnits(amountIn, tokenIn.Decimals), tokenIn.Symbol, amountIn.Dec())
	fmt.Printf("%sOut:%s %s %s (Raw: %s)\n", Bold, Reset, units.FormatUnits(amountOut, tokenOut.Decimals), tokenOut.Symbol, amountOut.Dec())
	fmt.Printf(Gray+"Quoted at sequence #%d, fee %d bps%s\n", pool.Sequence, pool.FeeBps, Reset)
}

func watchPool(safeState *SafeState, reader *bufio.Reader) {
	fmt.Println(Green + "Starting Live Watch... (Press 'Enter' to stop)" + Reset)
	time.Sleep(1 * time.Second)

	stopCh := make(chan struct{})
	go func() {
		reader.ReadString('\n')
		close(stopCh)
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var (
		lastSequence uint64
		printed      bool
	)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			state := safeState.Get()
			if state == nil {
				continue
			}

			if !printed || state.Sequence() != lastSequence {
				lastSequence = state.Sequence()
				printed = true

				fmt.Print("\033[H\033[2J")
				fmt.Printf(Bold+"\n--- LIVE MONITOR (Sequence: %d) ---\n"+Reset, lastSequence)
				fmt.Println(Gray + "Press ENTER to return to menu." + Reset)

				printStatus(state)
				printReserves(state)
			}
		}
	}
}

// --- HELPERS ---

func readToken(state *engine.State, reader *bufio.Reader) (erc20.Token, error) {
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return erc20.Token{}, fmt.Errorf("empty input")
	}

	for _, address := range []common.Address{state.Pool.TokenA, state.Pool.TokenB} {
		t := tokenOf(state, address)
		if strings.EqualFold(input, t.Symbol) || strings.EqualFold(input, address.Hex()) {
			return t, nil
		}
	}
	return erc20.Token{}, fmt.Errorf("token %q is not traded by this pool", input)
}

// tokenOf returns the streamed metadata for address, or an 18-decimal placeholder.
func tokenOf(state *engine.State, address common.Address) erc20.Token {
	if t, ok := state.Token(address); ok {
		return t
	}
	return erc20.Token{Address: address, Symbol: address.Hex()[:8], Decimals: units.DefaultDecimals}
}

// spotPrice is the fee-less price of one tokenIn in tokenOut.
func spotPrice(reserveIn, reserveOut *uint256.Int, tokenIn, tokenOut erc20.Token) string {
	in := units.ToDecimal(reserveIn, tokenIn.Decimals)
	if in.IsZero() {
		return "-"
	}
	out := units.ToDecimal(reserveOut, tokenOut.Decimals)
	return out.DivRound(in, 8).String() + " " + tokenOut.Symbol
}

func exitConsole() {
	fmt.Println(Yellow + "Exiting..." + Reset)
	os.Exit(0)
}
