package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = uint256.NewInt(10000)

	one = uint256.NewInt(1)

	// DefaultFeeBps is the swap fee applied when a pool does not configure one (0.3%).
	DefaultFeeBps uint16 = 30

	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrInsufficientLiquidity is returned when a reserve is zero or an amountOut
	// is requested that is greater than or equal to the available reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrArithmeticOverflow is returned when an intermediate or final value does not fit in 256 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrInvalidState is returned for internal calculation errors, like division by zero.
	ErrInvalidState = errors.New("invalid internal state")
	// ErrInvalidFee is returned when the fee is not strictly below 10000 basis points.
	ErrInvalidFee = errors.New("fee must be below 10000 basis points")
)

// Calculator holds reusable uint256 scratch values for the swap formulas.
// Instances of this struct are NOT safe for concurrent use by themselves.
// They are intended to be managed by the sync.Pool below.
type Calculator struct {
	// GetAmountOut
	feeMultiplier   uint256.Int
	amountInWithFee uint256.Int
	denominator     uint256.Int

	// GetAmountIn
	numeratorIn   uint256.Int
	denominatorIn uint256.Int
}

// calculatorPool manages a pool of Calculator objects, allowing for safe concurrent use
// and reducing allocations on hot quoting paths.
var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{}
	},
}

// ValidateFee reports whether feeBps leaves a positive share of the input for pricing.
func ValidateFee(feeBps uint16) error {
	if uint64(feeBps) >= basisPointDivisor.Uint64() {
		return fmt.Errorf("%w: got %d", ErrInvalidFee, feeBps)
	}
	return nil
}

// GetAmountOut returns floor(reserveOut * amountIn*(10000-fee) / (reserveIn*10000 + amountIn*(10000-fee))).
// The fee is taken from amountIn before the constant-product formula is applied.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, reserveIn, reserveOut, feeBps)
}

// GetAmountIn returns the smallest input that yields at least amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountIn(amountOut, reserveIn, reserveOut, feeBps)
}

// SimulateSwap calculates the result of a swap without touching its inputs.
// The returned reserves are new instances.
func SimulateSwap(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (amountOut, newReserveIn, newReserveOut *uint256.Int, err error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.simulateSwap(amountIn, reserveIn, reserveOut, feeBps)
}

func (c *Calculator) getAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountIn == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilAmount
	}
	if err := ValidateFee(feeBps); err != nil {
		return nil, err
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("%w: reserves are %s/%s", ErrInsufficientLiquidity, reserveIn.Dec(), reserveOut.Dec())
	}

	c.feeMultiplier.Sub(basisPointDivisor, uint256.NewInt(uint64(feeBps)))
	if _, overflow := c.amountInWithFee.MulOverflow(amountIn, &c.feeMultiplier); overflow {
		return nil, fmt.Errorf("%w: amountIn %s with fee", ErrArithmeticOverflow, amountIn.Dec())
	}
	if _, overflow := c.denominator.MulOverflow(reserveIn, basisPointDivisor); overflow {
		return nil, fmt.Errorf("%w: scaled reserveIn %s", ErrArithmeticOverflow, reserveIn.Dec())
	}
	if _, overflow := c.denominator.AddOverflow(&c.denominator, &c.amountInWithFee); overflow {
		return nil, fmt.Errorf("%w: swap denominator", ErrArithmeticOverflow)
	}
	if c.denominator.IsZero() {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	// The product reserveOut*amountInWithFee is carried in 512 bits; the quotient is
	// always below reserveOut and therefore fits.
	amountOut, overflow := new(uint256.Int).MulDivOverflow(reserveOut, &c.amountInWithFee, &c.denominator)
	if overflow {
		return nil, fmt.Errorf("%w: amountOut", ErrArithmeticOverflow)
	}
	return amountOut, nil
}

func (c *Calculator) getAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountOut == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilAmount
	}
	if err := ValidateFee(feeBps); err != nil {
		return nil, err
	}
	if reserveIn.IsZero() || reserveOut.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", ErrInsufficientLiquidity, amountOut.Dec(), reserveOut.Dec())
	}

	if _, overflow := c.numeratorIn.MulOverflow(reserveIn, amountOut); overflow {
		return nil, fmt.Errorf("%w: amountIn numerator", ErrArithmeticOverflow)
	}

	c.feeMultiplier.Sub(basisPointDivisor, uint256.NewInt(uint64(feeBps)))
	c.denominatorIn.Sub(reserveOut, amountOut)
	if _, overflow := c.denominatorIn.MulOverflow(&c.denominatorIn, &c.feeMultiplier); overflow {
		return nil, fmt.Errorf("%w: amountIn denominator", ErrArithmeticOverflow)
	}
	if c.denominatorIn.IsZero() {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	// amountIn = (reserveIn * amountOut * 10000) / ((reserveOut - amountOut) * (10000 - fee)) + 1
	amountIn, overflow := new(uint256.Int).MulDivOverflow(&c.numeratorIn, basisPointDivisor, &c.denominatorIn)
	if overflow {
		return nil, fmt.Errorf("%w: amountIn", ErrArithmeticOverflow)
	}
	if _, overflow := amountIn.AddOverflow(amountIn, one); overflow {
		return nil, fmt.Errorf("%w: amountIn", ErrArithmeticOverflow)
	}
	return amountIn, nil
}

func (c *Calculator) simulateSwap(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	amountOut, err := c.getAmountOut(amountIn, reserveIn, reserveOut, feeBps)
	if err != nil {
		return nil, nil, nil, err
	}

	newReserveIn, overflow := new(uint256.Int).AddOverflow(reserveIn, amountIn)
	if overflow {
		return nil, nil, nil, fmt.Errorf("%w: reserveIn %s + amountIn %s", ErrArithmeticOverflow, reserveIn.Dec(), amountIn.Dec())
	}
	// amountOut < reserveOut always holds for a positive reserveIn; keep the guard
	// so a broken formula can never underflow a reserve.
	if !amountOut.Lt(reserveOut) {
		return nil, nil, nil, fmt.Errorf("%w: amountOut %s would drain reserveOut %s", ErrInsufficientLiquidity, amountOut.Dec(), reserveOut.Dec())
	}
	newReserveOut := new(uint256.Int).Sub(reserveOut, amountOut)

	return amountOut, newReserveIn, newReserveOut, nil
}

// Quote returns floor(amountA * reserveB / reserveA), the fee-less spot equivalent of amountA.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || reserveA == nil || reserveB == nil {
		return nil, ErrNilAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, fmt.Errorf("%w: reserves are %s/%s", ErrInsufficientLiquidity, reserveA.Dec(), reserveB.Dec())
	}
	amountB, overflow := new(uint256.Int).MulDivOverflow(amountA, reserveB, reserveA)
	if overflow {
		return nil, fmt.Errorf("%w: quote of %s", ErrArithmeticOverflow, amountA.Dec())
	}
	return amountB, nil
}

// Invariant returns reserveA*reserveB as a big.Int, which cannot overflow.
func Invariant(reserveA, reserveB *uint256.Int) *big.Int {
	return new(big.Int).Mul(reserveA.ToBig(), reserveB.ToBig())
}
