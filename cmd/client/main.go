package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/defistate/tokenswap-go/patcher"
	"github.com/defistate/tokenswap-go/streams/jsonrpc/client"
	"github.com/defistate/tokenswap-go/units"
	"github.com/spf13/pflag"
)

const (
	DefaultClientStateBufferSize = 100
)

func main() {
	url := pflag.String("url", "ws://localhost:8545/ws", "Websocket URL of the swap daemon.")
	pflag.Parse()

	// create the log handler
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	close := func() {
		os.Exit(1)
	}
	rootLogger := slog.New(rootLogHandler)

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statePatcher, err := patcher.NewStatePatcher(&patcher.StatePatcherConfig{})
	if err != nil {
		rootLogger.Error("Failed to initialize state patcher", "error", err)
		close()
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
		close()
	}

	for {
		select {
		case state := <-client.State():
			rootLogger.Info("Pool state",
				"chain_id", state.ChainID,
				"sequence", state.Sequence(),
				"status", state.Pool.Status(),
				"reserveA", units.FormatEther(state.Pool.ReserveA),
				"reserveB", units.FormatEther(state.Pool.ReserveB),
			)
		case err, ok := <-client.Err():
			if ok {
				rootLogger.Error("Fatal client error", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}
