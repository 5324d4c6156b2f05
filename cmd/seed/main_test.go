package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/defistate/tokenswap-go/deploy"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/streams/jsonrpc/client"
	"github.com/defistate/tokenswap-go/streams/jsonrpc/server"
	"github.com/defistate/tokenswap-go/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func newCaller(t *testing.T) (*client.Caller, *deploy.Deployment) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()

	d, err := deploy.Deploy(context.Background(), deploy.Config{
		Deployer:      deployer,
		TokenA:        deploy.TokenSpec{Name: "Token A", Symbol: "TKA"},
		TokenB:        deploy.TokenSpec{Name: "Token B", Symbol: "TKB"},
		InitialSupply: deploy.DefaultInitialSupply,
		Registry:      registry,
		Logger:        logger,
	})
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		ChainID:    31337,
		Pool:       d.Pool,
		Tokens:     d.Ledgers(),
		Registry:   registry,
		Logger:     logger,
		BufferSize: 1,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	rpcClient := rpc.DialInProc(srv.RPC())
	t.Cleanup(rpcClient.Close)
	return client.NewCaller(rpcClient), d
}

func TestSeed(t *testing.T) {
	caller, d := newCaller(t)
	var out bytes.Buffer

	err := seed(context.Background(), caller, deployer, deploy.DefaultSeed, deploy.DefaultSeed, &out)
	require.NoError(t, err)

	reserveA, reserveB := d.Pool.Reserves()
	assert.Equal(t, deploy.DefaultSeed, reserveA)
	assert.Equal(t, deploy.DefaultSeed, reserveB)
	assert.Equal(t, reservepool.StatusActive, d.Pool.Status())

	report := out.String()
	assert.Contains(t, report, "Your TKA balance: 1000000")
	assert.Contains(t, report, "Reserve A: 0 TKA")
	assert.Contains(t, report, "TKB approved")
	assert.Contains(t, report, "Adding 10000 TKA and 10000 TKB...")
	assert.Contains(t, report, "Reserve B: 10000 TKB")
	assert.Contains(t, report, "Your TKB balance: 990000")
}

func TestSeed_InsufficientBalance(t *testing.T) {
	caller, d := newCaller(t)
	var out bytes.Buffer

	stranger := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	err := seed(context.Background(), caller, stranger, units.MustParseEther("1"), units.MustParseEther("1"), &out)
	assert.ErrorIs(t, err, reservepool.ErrInsufficientBalance)
	assert.True(t, d.Pool.ReserveA().IsZero())
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
