package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/defistate/tokenswap-go/cmd/swapd/config"
	"github.com/defistate/tokenswap-go/deploy"
	"github.com/defistate/tokenswap-go/recorder"
	"github.com/defistate/tokenswap-go/streams/jsonrpc/server"
	"github.com/defistate/tokenswap-go/units"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := pflag.String("config", "config.yaml", "Path to the configuration file.")
	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn or error.")
	pflag.Parse()

	rootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	closeApp := func() {
		os.Exit(1)
	}

	rootLogger.Info("Loading configuration", "path", *configPath)
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		closeApp()
	}
	network := cfg.NetworkInfo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prometheusRegistry := prometheus.DefaultRegisterer

	// --- 1. DEPLOY ---
	supply, err := cfg.InitialSupplyAmount()
	if err != nil {
		rootLogger.Error("Invalid initial supply", "error", err)
		closeApp()
	}
	prefund, err := cfg.PrefundAmount()
	if err != nil {
		rootLogger.Error("Invalid prefund", "error", err)
		closeApp()
	}
	seedA, seedB, err := cfg.SeedAmounts()
	if err != nil {
		rootLogger.Error("Invalid seed amounts", "error", err)
		closeApp()
	}

	deployment, err := deploy.Deploy(ctx, deploy.Config{
		Deployer:      cfg.DeployerAddress(),
		TokenA:        deploy.TokenSpec{Name: cfg.TokenA.Name, Symbol: cfg.TokenA.Symbol},
		TokenB:        deploy.TokenSpec{Name: cfg.TokenB.Name, Symbol: cfg.TokenB.Symbol},
		InitialSupply: supply,
		FeeBps:        cfg.FeeBps,
		Prefund:       prefund,
		SeedA:         seedA,
		SeedB:         seedB,
		Registry:      prometheusRegistry,
		Logger:        rootLogger.With("component", "deploy", "network", network.Name),
	})
	if err != nil {
		rootLogger.Error("Failed to deploy pool", "error", err)
		closeApp()
	}

	// --- 2. RPC SERVER ---
	rpcServer, err := server.New(server.Config{
		ChainID:    network.ChainID,
		Pool:       deployment.Pool,
		Tokens:     deployment.Ledgers(),
		Registry:   prometheusRegistry,
		Logger:     rootLogger.With("component", "jsonrpc-server"),
		BufferSize: cfg.StreamBufferSize,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize RPC server", "error", err)
		closeApp()
	}
	go rpcServer.Run(ctx)

	httpServers := []*http.Server{{Addr: cfg.ListenAddr, Handler: rpcServer.Handler()}}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		httpServers = append(httpServers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux})
	}
	for _, srv := range httpServers {
		go func(srv *http.Server) {
			rootLogger.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rootLogger.Error("HTTP server failed", "addr", srv.Addr, "error", err)
				stop()
			}
		}(srv)
	}

	// --- 3. RECORDER ---
	if cfg.Influx.Enabled() {
		influxClient := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		defer influxClient.Close()

		writeAPI := influxClient.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket)
		recorderLogger := rootLogger.With("component", "recorder")
		go func() {
			for err := range writeAPI.Errors() {
				recorderLogger.Warn("InfluxDB write failed", "error", err)
			}
		}()

		rec, err := recorder.New(recorder.Config{
			Pool:     deployment.Pool,
			Writer:   writeAPI,
			Chain:    network.Name,
			Decimals: units.DefaultDecimals,
			Logger:   recorderLogger,
		})
		if err != nil {
			rootLogger.Error("Failed to initialize recorder", "error", err)
			closeApp()
		}
		go rec.Run(ctx)
	}

	rootLogger.Info("Swap daemon started",
		"chain_id", network.ChainID,
		"pool", deployment.Pool.Address(),
		"tokenA", deployment.TokenA.Address(),
		"tokenB", deployment.TokenB.Address(),
	)

	<-ctx.Done()
	rootLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range httpServers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rootLogger.Warn("HTTP server shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
	rpcServer.Stop()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
