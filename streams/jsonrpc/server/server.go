package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/defistate/tokenswap-go/differ"
	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/streams/jsonrpc"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the RPC server.
type Config struct {
	ChainID    uint64
	Pool       *reservepool.Pool
	Tokens     []*erc20.Ledger // the ledgers of the pool's pair
	Registry   prometheus.Registerer
	Logger     Logger
	BufferSize uint // per-subscriber event buffer
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Pool == nil {
		return errors.New("config: Pool is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	pair := map[string]bool{c.Pool.TokenA().Hex(): false, c.Pool.TokenB().Hex(): false}
	for _, l := range c.Tokens {
		if l == nil {
			return errors.New("config: Tokens cannot contain nil")
		}
		if _, ok := pair[l.Address().Hex()]; !ok {
			return fmt.Errorf("config: token %s is not traded by pool %s", l.Address(), c.Pool.Address())
		}
		pair[l.Address().Hex()] = true
	}
	for token, found := range pair {
		if !found {
			return fmt.Errorf("config: missing ledger for token %s", token)
		}
	}
	return nil
}

// Server exposes a pool and its token ledgers over JSON-RPC and streams pool states.
type Server struct {
	rpc      *rpc.Server
	streamer *Streamer
	logger   Logger
}

// New registers the swap and token APIs on a fresh rpc.Server.
func New(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Registry)
	stateDiffer, err := differ.NewStateDiffer(&differ.StateDifferConfig{
		Registry: cfg.Registry,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create state differ: %w", err)
	}

	metas := make([]erc20.Token, 0, len(cfg.Tokens))
	ledgers := make(map[string]*erc20.Ledger, len(cfg.Tokens))
	for _, l := range cfg.Tokens {
		metas = append(metas, l.Meta())
		ledgers[l.Address().Hex()] = l
	}

	streamer := NewStreamer(cfg.ChainID, cfg.Pool, metas, stateDiffer, cfg.BufferSize, metrics, cfg.Logger)

	srv := rpc.NewServer()
	if err := srv.RegisterName(jsonrpc.SwapNamespace, &SwapAPI{pool: cfg.Pool, streamer: streamer, metrics: metrics, logger: cfg.Logger}); err != nil {
		return nil, fmt.Errorf("failed to register %s API: %w", jsonrpc.SwapNamespace, err)
	}
	if err := srv.RegisterName(jsonrpc.TokenNamespace, &TokenAPI{ledgers: ledgers, metas: metas, metrics: metrics}); err != nil {
		return nil, fmt.Errorf("failed to register %s API: %w", jsonrpc.TokenNamespace, err)
	}

	return &Server{rpc: srv, streamer: streamer, logger: cfg.Logger}, nil
}

// Run streams pool commits to subscribers until ctx is canceled.
func (s *Server) Run(ctx context.Context) {
	s.streamer.Run(ctx)
}

// Handler serves JSON-RPC over HTTP at "/" and over websocket at "/ws".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.rpc.WebsocketHandler([]string{"*"}))
	mux.Handle("/", s.rpc)
	return mux
}

// RPC returns the underlying rpc.Server, for in-process clients.
func (s *Server) RPC() *rpc.Server {
	return s.rpc
}

// Stop closes all RPC connections.
func (s *Server) Stop() {
	s.logger.Info("Stopping RPC server")
	s.rpc.Stop()
}
