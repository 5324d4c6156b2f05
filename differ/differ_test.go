package differ

import (
	"io"
	"log/slog"
	"testing"

	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var poolAddr = common.HexToAddress("0x5f2f5Bb81b81f59bd22D38a1c24D841fAf517AB8")

func makeState(seq, reserveA, reserveB uint64) *engine.State {
	return &engine.State{
		ChainID:   31337,
		Timestamp: seq * 1000,
		Pool: reservepool.State{
			Address:     poolAddr,
			ReserveA:    uint256.NewInt(reserveA),
			ReserveB:    uint256.NewInt(reserveB),
			TotalShares: uint256.NewInt(100),
			FeeBps:      30,
			Sequence:    seq,
		},
	}
}

func newTestDiffer(t *testing.T) *StateDiffer {
	t.Helper()
	d, err := NewStateDiffer(&StateDifferConfig{
		Registry: prometheus.NewRegistry(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return d
}

func TestNewStateDiffer_Validation(t *testing.T) {
	_, err := NewStateDiffer(&StateDifferConfig{Logger: slog.Default()})
	assert.Error(t, err)
	_, err = NewStateDiffer(&StateDifferConfig{Registry: prometheus.NewRegistry()})
	assert.Error(t, err)
}

func TestStateDiffer_Diff(t *testing.T) {
	d := newTestDiffer(t)

	t.Run("reserve change", func(t *testing.T) {
		diff, err := d.Diff(makeState(4, 1000, 5000), makeState(5, 1100, 4550))
		require.NoError(t, err)
		assert.Equal(t, uint64(4), diff.FromSequence)
		assert.Equal(t, uint64(5), diff.ToSequence)
		require.NotNil(t, diff.Pool.ReserveA)
		assert.Equal(t, uint64(1100), diff.Pool.ReserveA.Uint64())
		assert.Nil(t, diff.Pool.TotalShares)
	})

	t.Run("no change", func(t *testing.T) {
		diff, err := d.Diff(makeState(4, 1000, 5000), makeState(4, 1000, 5000))
		require.NoError(t, err)
		assert.True(t, diff.IsEmpty())
	})

	t.Run("older new state", func(t *testing.T) {
		_, err := d.Diff(makeState(5, 1000, 5000), makeState(4, 1000, 5000))
		assert.Error(t, err)
	})

	t.Run("different pool", func(t *testing.T) {
		other := makeState(5, 1000, 5000)
		other.Pool.Address = common.HexToAddress("0x01")
		_, err := d.Diff(makeState(4, 1000, 5000), other)
		assert.Error(t, err)
	})

	t.Run("different chain", func(t *testing.T) {
		other := makeState(5, 1000, 5000)
		other.ChainID = 1114
		_, err := d.Diff(makeState(4, 1000, 5000), other)
		assert.Error(t, err)
	})
}
