package calculator

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharesForDeposit(t *testing.T) {
	testCases := []struct {
		name        string
		amountA     *uint256.Int
		amountB     *uint256.Int
		reserveA    *uint256.Int
		reserveB    *uint256.Int
		totalShares *uint256.Int
		expected    *uint256.Int
		expectedErr error
	}{
		{
			name:        "First deposit mints the geometric mean",
			amountA:     tokens(10_000),
			amountB:     tokens(10_000),
			reserveA:    new(uint256.Int),
			reserveB:    new(uint256.Int),
			totalShares: new(uint256.Int),
			expected:    tokens(10_000),
		},
		{
			name:        "First deposit, uneven sides",
			amountA:     uint256.NewInt(4),
			amountB:     uint256.NewInt(10),
			reserveA:    new(uint256.Int),
			reserveB:    new(uint256.Int),
			totalShares: new(uint256.Int),
			expected:    uint256.NewInt(6), // floor(sqrt(40))
		},
		{
			name:        "Proportional deposit",
			amountA:     tokens(500),
			amountB:     tokens(1_000),
			reserveA:    tokens(1_000),
			reserveB:    tokens(2_000),
			totalShares: tokens(100),
			expected:    tokens(50),
		},
		{
			name:        "Off-ratio deposit is valued at the scarcer side",
			amountA:     tokens(500),
			amountB:     tokens(100),
			reserveA:    tokens(1_000),
			reserveB:    tokens(2_000),
			totalShares: tokens(100),
			expected:    tokens(5),
		},
		{
			name:        "Dust deposit mints nothing",
			amountA:     uint256.NewInt(1),
			amountB:     uint256.NewInt(1),
			reserveA:    tokens(1_000),
			reserveB:    tokens(1_000),
			totalShares: uint256.NewInt(10),
			expected:    new(uint256.Int),
		},
		{
			name:        "Initial product wider than 256 bits",
			amountA:     new(uint256.Int).Lsh(uint256.NewInt(1), 130),
			amountB:     new(uint256.Int).Lsh(uint256.NewInt(1), 130),
			reserveA:    new(uint256.Int),
			reserveB:    new(uint256.Int),
			totalShares: new(uint256.Int),
			expected:    new(uint256.Int).Lsh(uint256.NewInt(1), 130),
		},
		{
			name:        "Largest possible first deposit",
			amountA:     new(uint256.Int).SetAllOne(),
			amountB:     new(uint256.Int).SetAllOne(),
			reserveA:    new(uint256.Int),
			reserveB:    new(uint256.Int),
			totalShares: new(uint256.Int),
			expected:    new(uint256.Int).SetAllOne(),
		},
		{
			name:        "Later deposit shares overflow",
			amountA:     new(uint256.Int).SetAllOne(),
			amountB:     new(uint256.Int).SetAllOne(),
			reserveA:    uint256.NewInt(1),
			reserveB:    uint256.NewInt(1),
			totalShares: new(uint256.Int).SetAllOne(),
			expectedErr: ErrArithmeticOverflow,
		},
		{
			name:        "Shares outstanding over empty reserves",
			amountA:     uint256.NewInt(1),
			amountB:     uint256.NewInt(1),
			reserveA:    new(uint256.Int),
			reserveB:    tokens(1),
			totalShares: uint256.NewInt(10),
			expectedErr: ErrInvalidState,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			shares, err := SharesForDeposit(tc.amountA, tc.amountB, tc.reserveA, tc.reserveB, tc.totalShares)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Eq(shares), "Expected %s, but got %s", tc.expected.Dec(), shares.Dec())
		})
	}
}

func TestAmountsForShares(t *testing.T) {
	amountA, amountB, err := AmountsForShares(uint256.NewInt(1), uint256.NewInt(10), uint256.NewInt(20), uint256.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), amountA.Uint64(), "floor(10/3)")
	assert.Equal(t, uint64(6), amountB.Uint64(), "floor(20/3)")

	t.Run("burning everything returns the full reserves", func(t *testing.T) {
		a, b, err := AmountsForShares(tokens(7), tokens(1_234), tokens(5_678), tokens(7))
		require.NoError(t, err)
		assert.True(t, tokens(1_234).Eq(a))
		assert.True(t, tokens(5_678).Eq(b))
	})

	t.Run("more than the supply", func(t *testing.T) {
		_, _, err := AmountsForShares(uint256.NewInt(4), uint256.NewInt(10), uint256.NewInt(20), uint256.NewInt(3))
		assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	})

	t.Run("no supply", func(t *testing.T) {
		_, _, err := AmountsForShares(uint256.NewInt(0), uint256.NewInt(10), uint256.NewInt(20), new(uint256.Int))
		assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	})
}
