package erc20

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob   = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
	pool  = common.HexToAddress("0x5f2f5Bb81b81f59bd22D38a1c24D841fAf517AB8")
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(Token{
		Address:  common.HexToAddress("0xc97E96D86788ECBD9dc2aF2dC24B936A775f020a"),
		Name:     "Token A",
		Symbol:   "TKA",
		Decimals: 18,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return l
}

func TestNewLedger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewLedger(Token{Symbol: "TKA"}, logger)
	assert.ErrorIs(t, err, ErrZeroAddress)

	_, err = NewLedger(Token{Address: alice}, nil)
	assert.Error(t, err)
}

func TestLedger_MintAndTransfer(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.Mint(alice, uint256.NewInt(1_000)))
	assert.Equal(t, uint64(1_000), l.TotalSupply().Uint64())
	assert.Equal(t, uint64(1_000), l.BalanceOf(alice).Uint64())
	assert.True(t, l.BalanceOf(bob).IsZero(), "unknown owners hold zero")

	require.NoError(t, l.Transfer(ctx, alice, bob, uint256.NewInt(400)))
	assert.Equal(t, uint64(600), l.BalanceOf(alice).Uint64())
	assert.Equal(t, uint64(400), l.BalanceOf(bob).Uint64())

	t.Run("insufficient balance leaves state untouched", func(t *testing.T) {
		err := l.Transfer(ctx, bob, alice, uint256.NewInt(401))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, uint64(400), l.BalanceOf(bob).Uint64())
		assert.Equal(t, uint64(600), l.BalanceOf(alice).Uint64())
	})

	t.Run("zero address is rejected", func(t *testing.T) {
		assert.ErrorIs(t, l.Transfer(ctx, alice, common.Address{}, uint256.NewInt(1)), ErrZeroAddress)
		assert.ErrorIs(t, l.Mint(common.Address{}, uint256.NewInt(1)), ErrZeroAddress)
	})

	t.Run("zero transfer from an empty account is a no-op", func(t *testing.T) {
		stranger := common.HexToAddress("0x1234")
		require.NoError(t, l.Transfer(ctx, stranger, alice, new(uint256.Int)))
		assert.Equal(t, uint64(600), l.BalanceOf(alice).Uint64())
	})

	t.Run("nil amount", func(t *testing.T) {
		assert.ErrorIs(t, l.Transfer(ctx, alice, bob, nil), ErrNilAmount)
	})
}

func TestLedger_MintOverflow(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, new(uint256.Int).SetAllOne()))

	err := l.Mint(bob, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	assert.True(t, l.BalanceOf(bob).IsZero())
}

func TestLedger_TransferFrom(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, uint256.NewInt(1_000)))

	t.Run("without approval", func(t *testing.T) {
		err := l.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(1))
		assert.ErrorIs(t, err, ErrInsufficientAllowance)
	})

	require.NoError(t, l.Approve(ctx, alice, pool, uint256.NewInt(500)))
	assert.Equal(t, uint64(500), l.Allowance(alice, pool).Uint64())

	t.Run("consumes allowance", func(t *testing.T) {
		require.NoError(t, l.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(200)))
		assert.Equal(t, uint64(300), l.Allowance(alice, pool).Uint64())
		assert.Equal(t, uint64(800), l.BalanceOf(alice).Uint64())
		assert.Equal(t, uint64(200), l.BalanceOf(pool).Uint64())
	})

	t.Run("more than allowance", func(t *testing.T) {
		err := l.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(301))
		assert.ErrorIs(t, err, ErrInsufficientAllowance)
		assert.Equal(t, uint64(300), l.Allowance(alice, pool).Uint64(), "failed pull must not consume allowance")
	})

	t.Run("allowance above balance", func(t *testing.T) {
		require.NoError(t, l.Approve(ctx, alice, pool, uint256.NewInt(5_000)))
		err := l.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(900))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, uint64(5_000), l.Allowance(alice, pool).Uint64())
	})

	t.Run("infinite allowance is not decremented", func(t *testing.T) {
		infinite := new(uint256.Int).SetAllOne()
		require.NoError(t, l.Approve(ctx, alice, pool, infinite))
		require.NoError(t, l.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(100)))
		assert.True(t, l.Allowance(alice, pool).Eq(infinite))
	})
}

func TestLedger_ReturnsCopies(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, uint256.NewInt(10)))

	b := l.BalanceOf(alice)
	b.SetUint64(999)
	assert.Equal(t, uint64(10), l.BalanceOf(alice).Uint64(), "mutating a returned balance must not affect the ledger")

	amount := uint256.NewInt(7)
	require.NoError(t, l.Approve(context.Background(), alice, bob, amount))
	amount.SetUint64(70)
	assert.Equal(t, uint64(7), l.Allowance(alice, bob).Uint64())
}

func TestLedger_CanceledContext(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, uint256.NewInt(10)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Transfer(ctx, alice, bob, uint256.NewInt(1)), context.Canceled)
	assert.Equal(t, uint64(10), l.BalanceOf(alice).Uint64())
}

func TestLedger_ConcurrentTransfersConserveSupply(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, uint256.NewInt(10_000)))
	require.NoError(t, l.Mint(bob, uint256.NewInt(10_000)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Transfer(ctx, alice, bob, uint256.NewInt(7))
		}()
		go func() {
			defer wg.Done()
			_ = l.Transfer(ctx, bob, alice, uint256.NewInt(3))
		}()
	}
	wg.Wait()

	sum := new(uint256.Int).Add(l.BalanceOf(alice), l.BalanceOf(bob))
	assert.True(t, sum.Eq(l.TotalSupply()), "balances must always sum to total supply")
	assert.Equal(t, uint64(10_000-50*7+50*3), l.BalanceOf(alice).Uint64())
}
