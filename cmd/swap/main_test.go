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
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// newCaller deploys a pool seeded with 10000/10000 and serves it in-process.
func newCaller(t *testing.T) (*client.Caller, *deploy.Deployment) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()

	d, err := deploy.Deploy(context.Background(), deploy.Config{
		Deployer:      deployer,
		TokenA:        deploy.TokenSpec{Name: "Token A", Symbol: "TKA"},
		TokenB:        deploy.TokenSpec{Name: "Token B", Symbol: "TKB"},
		InitialSupply: deploy.DefaultInitialSupply,
		SeedA:         deploy.DefaultSeed,
		SeedB:         deploy.DefaultSeed,
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

func TestSwap_AForB(t *testing.T) {
	caller, d := newCaller(t)
	var out bytes.Buffer

	received, err := swap(context.Background(), caller, deployer, true, units.MustParseEther("100"), 50, &out)
	require.NoError(t, err)
	assert.Equal(t, "98715803439706129885", received.Dec())

	reserveA, reserveB := d.Pool.Reserves()
	assert.Equal(t, units.MustParseEther("10100"), reserveA)
	assert.Equal(t, "9901284196560293870115", reserveB.Dec())
	assert.True(t, d.TokenA.Allowance(deployer, d.Pool.Address()).IsZero(), "the approval must be spent exactly")

	report := out.String()
	assert.Contains(t, report, "Selling 100 TKA for about 98.715803439706129885 TKB (minimum 98.222224422507599235 at 50 bps slippage)")
	assert.Contains(t, report, "TKA approved")
	assert.Contains(t, report, "Received 98.715803439706129885 TKB")
	assert.Contains(t, report, "Reserve A: 10100")
	assert.Contains(t, report, "Your TKA balance: 989900")
}

func TestSwap_BForA(t *testing.T) {
	caller, d := newCaller(t)
	var out bytes.Buffer

	received, err := swap(context.Background(), caller, deployer, false, units.MustParseEther("100"), 0, &out)
	require.NoError(t, err)
	assert.Equal(t, "98715803439706129885", received.Dec())

	reserveA, reserveB := d.Pool.Reserves()
	assert.Equal(t, "9901284196560293870115", reserveA.Dec())
	assert.Equal(t, units.MustParseEther("10100"), reserveB)
	assert.Contains(t, out.String(), "Selling 100 TKB for about 98.715803439706129885 TKA")
}

func TestSwap_Errors(t *testing.T) {
	t.Run("trader without funds", func(t *testing.T) {
		caller, d := newCaller(t)
		stranger := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
		_, err := swap(context.Background(), caller, stranger, true, units.MustParseEther("1"), 50, io.Discard)
		assert.ErrorIs(t, err, reservepool.ErrInsufficientBalance)
		assert.Equal(t, uint64(1), d.Pool.Sequence())
	})

	t.Run("slippage out of range", func(t *testing.T) {
		caller, d := newCaller(t)
		_, err := swap(context.Background(), caller, deployer, true, units.MustParseEther("1"), 10_000, io.Discard)
		assert.ErrorIs(t, err, errInvalidSlippage)
		assert.Equal(t, uint64(1), d.Pool.Sequence())
	})
}

func TestMinAmountOut(t *testing.T) {
	testCases := []struct {
		name        string
		quoted      *uint256.Int
		slippageBps uint16
		expected    *uint256.Int
		expectedErr error
	}{
		{"no slippage", uint256.NewInt(1_000), 0, uint256.NewInt(1_000), nil},
		{"half a percent", uint256.NewInt(1_000), 50, uint256.NewInt(995), nil},
		{"rounds down", uint256.NewInt(999), 50, uint256.NewInt(994), nil},
		{"wei precision", uint256.MustFromDecimal("98715803439706129885"), 50, uint256.MustFromDecimal("98222224422507599235"), nil},
		{"everything", uint256.NewInt(1_000), 10_000, nil, errInvalidSlippage},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			minOut, err := minAmountOut(tc.quoted, tc.slippageBps)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Eq(minOut), "Expected %s, but got %s", tc.expected.Dec(), minOut.Dec())
		})
	}
}

func TestParseDirection(t *testing.T) {
	aForB, err := parseDirection("a-to-b")
	require.NoError(t, err)
	assert.True(t, aForB)

	aForB, err = parseDirection("B-TO-A")
	require.NoError(t, err)
	assert.False(t, aForB)

	_, err = parseDirection("sideways")
	assert.Error(t, err)
}
