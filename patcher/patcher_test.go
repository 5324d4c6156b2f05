package patcher

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/defistate/tokenswap-go/differ"
	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------------
// --- Helpers ---
// --------------------------------------------------------------------------------

var poolAddr = common.HexToAddress("0x5f2f5Bb81b81f59bd22D38a1c24D841fAf517AB8")

func makeState(seq, reserveA, reserveB, shares uint64) *engine.State {
	return &engine.State{
		ChainID:   31337,
		Timestamp: seq,
		Tokens:    []erc20.Token{{Address: common.HexToAddress("0xa"), Symbol: "TKA", Decimals: 18}},
		Pool: reservepool.State{
			Address:     poolAddr,
			ReserveA:    uint256.NewInt(reserveA),
			ReserveB:    uint256.NewInt(reserveB),
			TotalShares: uint256.NewInt(shares),
			FeeBps:      30,
			Sequence:    seq,
		},
	}
}

// --------------------------------------------------------------------------------
// --- Main Test Suite ---
// --------------------------------------------------------------------------------

func TestStatePatcher_HappyPath(t *testing.T) {
	patcher, err := NewStatePatcher(&StatePatcherConfig{})
	require.NoError(t, err)

	oldState := makeState(100, 1000, 5000, 70)
	diff := &differ.StateDiff{
		Timestamp:    42,
		FromSequence: 100,
		ToSequence:   101,
		Pool:         reservepool.PoolDiff{ReserveA: uint256.NewInt(1100)},
	}

	newState, err := patcher.Patch(oldState, diff)
	require.NoError(t, err)

	assert.Equal(t, uint64(101), newState.Sequence())
	assert.Equal(t, uint64(42), newState.Timestamp)
	assert.Equal(t, uint64(31337), newState.ChainID)
	assert.Equal(t, oldState.Tokens, newState.Tokens)
	assert.Equal(t, uint64(1100), newState.Pool.ReserveA.Uint64())
	assert.Equal(t, uint64(5000), newState.Pool.ReserveB.Uint64())

	// The old state must be untouched.
	assert.Equal(t, uint64(1000), oldState.Pool.ReserveA.Uint64())
	assert.Equal(t, uint64(100), oldState.Sequence())
}

func TestStatePatcher_SequenceMismatch(t *testing.T) {
	patcher, _ := NewStatePatcher(&StatePatcherConfig{})

	oldState := makeState(100, 1, 1, 1)
	diff := &differ.StateDiff{FromSequence: 99, ToSequence: 100} // Mismatch!

	_, err := patcher.Patch(oldState, diff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch fromSequence")
}

func TestStatePatcher_PoolPatcherError(t *testing.T) {
	patcher, _ := NewStatePatcher(&StatePatcherConfig{
		PoolPatcher: func(reservepool.State, reservepool.PoolDiff) (reservepool.State, error) {
			return reservepool.State{}, errors.New("boom")
		},
	})

	_, err := patcher.Patch(makeState(1, 1, 1, 1), &differ.StateDiff{FromSequence: 1, ToSequence: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to patch pool")
}

func TestStatePatcher_NilConfig(t *testing.T) {
	_, err := NewStatePatcher(nil)
	assert.Error(t, err)
}

// TestDiffThenPatch checks that a client rebuilding states from diffs ends up
// with exactly the states the server diffed.
func TestDiffThenPatch(t *testing.T) {
	d, err := differ.NewStateDiffer(&differ.StateDifferConfig{
		Registry: prometheus.NewRegistry(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	patcher, err := NewStatePatcher(&StatePatcherConfig{})
	require.NoError(t, err)

	states := []*engine.State{
		makeState(1, 1000, 1000, 1000),
		makeState(2, 1100, 910, 1000),
		makeState(3, 1100, 910, 1000),
		makeState(4, 2200, 1820, 2000),
		makeState(5, 0, 0, 0),
	}

	current := states[0]
	for _, want := range states[1:] {
		diff, err := d.Diff(current, want)
		require.NoError(t, err)

		next, err := patcher.Patch(current, diff)
		require.NoError(t, err)
		assert.Equal(t, want.Pool, next.Pool)
		current = next
	}
}
