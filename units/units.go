// Package units converts between human-readable token amounts and their
// fixed-point integer representation.
package units

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the precision of ether and of every token the deployer mints.
const DefaultDecimals uint8 = 18

var (
	// ErrInvalidAmount is returned when a string is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNegativeAmount is returned for amounts below zero.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrTooPrecise is returned when an amount has more fractional digits than the token supports.
	ErrTooPrecise = errors.New("amount exceeds token precision")
	// ErrOverflow is returned when the scaled amount does not fit in 256 bits.
	ErrOverflow = errors.New("amount overflows uint256")
)

// ParseUnits scales a decimal string such as "10000" or "0.25" by 10^decimals.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return FromDecimal(d, decimals)
}

// ParseEther is ParseUnits with 18 decimals.
func ParseEther(s string) (*uint256.Int, error) {
	return ParseUnits(s, DefaultDecimals)
}

// MustParseEther is like ParseEther but panics on error. Use it for constants.
func MustParseEther(s string) *uint256.Int {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromDecimal scales d by 10^decimals. The result must be a non-negative integer.
func FromDecimal(d decimal.Decimal, decimals uint8) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, d)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrTooPrecise, d, decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, d)
	}
	return v, nil
}

// ToDecimal returns v / 10^decimals exactly. A nil v is zero.
func ToDecimal(v *uint256.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals))
}

// FormatUnits renders v / 10^decimals without trailing zeros.
func FormatUnits(v *uint256.Int, decimals uint8) string {
	return ToDecimal(v, decimals).String()
}

// FormatEther is FormatUnits with 18 decimals.
func FormatEther(v *uint256.Int) string {
	return FormatUnits(v, DefaultDecimals)
}
