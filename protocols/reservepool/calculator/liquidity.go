package calculator

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// SharesForDeposit returns the pool shares minted for depositing amountA and amountB.
//
// An empty share supply mints floor(sqrt(amountA*amountB)). Otherwise the deposit is
// valued at its scarcer side: min(amountA*totalShares/reserveA, amountB*totalShares/reserveB).
// Anything above that ratio stays in the pool unclaimed by the depositor.
func SharesForDeposit(amountA, amountB, reserveA, reserveB, totalShares *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || amountB == nil || reserveA == nil || reserveB == nil || totalShares == nil {
		return nil, ErrNilAmount
	}

	if totalShares.IsZero() {
		// The product may need 512 bits; its root always fits in 256.
		product := new(big.Int).Mul(amountA.ToBig(), amountB.ToBig())
		shares, overflow := uint256.FromBig(product.Sqrt(product))
		if overflow {
			return nil, fmt.Errorf("%w: initial deposit %s * %s", ErrArithmeticOverflow, amountA.Dec(), amountB.Dec())
		}
		return shares, nil
	}

	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, fmt.Errorf("%w: shares outstanding over an empty reserve", ErrInvalidState)
	}

	sharesA, overflow := new(uint256.Int).MulDivOverflow(amountA, totalShares, reserveA)
	if overflow {
		return nil, fmt.Errorf("%w: shares for amountA", ErrArithmeticOverflow)
	}
	sharesB, overflow := new(uint256.Int).MulDivOverflow(amountB, totalShares, reserveB)
	if overflow {
		return nil, fmt.Errorf("%w: shares for amountB", ErrArithmeticOverflow)
	}
	if sharesA.Lt(sharesB) {
		return sharesA, nil
	}
	return sharesB, nil
}

// AmountsForShares returns the reserves redeemed by burning shares out of totalShares,
// rounded down on both sides.
func AmountsForShares(shares, reserveA, reserveB, totalShares *uint256.Int) (amountA, amountB *uint256.Int, err error) {
	if shares == nil || reserveA == nil || reserveB == nil || totalShares == nil {
		return nil, nil, ErrNilAmount
	}
	if totalShares.IsZero() || totalShares.Lt(shares) {
		return nil, nil, fmt.Errorf("%w: burning %s of %s shares", ErrInsufficientLiquidity, shares.Dec(), totalShares.Dec())
	}

	// shares <= totalShares, so both quotients are bounded by their reserve.
	amountA, _ = new(uint256.Int).MulDivOverflow(shares, reserveA, totalShares)
	amountB, _ = new(uint256.Int).MulDivOverflow(shares, reserveB, totalShares)
	return amountA, amountB, nil
}
