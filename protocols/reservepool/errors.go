package reservepool

import (
	"errors"

	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool/calculator"
)

var (
	// ErrZeroAmount is returned when a required amount is nil or zero.
	ErrZeroAmount = errors.New("amount must be positive")
	// ErrInsufficientAllowance is returned when the actor has not approved the pool for enough tokens.
	ErrInsufficientAllowance = erc20.ErrInsufficientAllowance
	// ErrInsufficientBalance is returned when the actor holds fewer tokens than requested.
	ErrInsufficientBalance = erc20.ErrInsufficientBalance
	// ErrInsufficientLiquidity is returned when the pool is unseeded or cannot cover an output.
	ErrInsufficientLiquidity = calculator.ErrInsufficientLiquidity
	// ErrSlippageExceeded is returned when the output falls below the caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrInsufficientOutputAmount is returned when a swap would pay out nothing.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrArithmeticOverflow is returned when a reserve, share count or intermediate exceeds 256 bits.
	ErrArithmeticOverflow = calculator.ErrArithmeticOverflow
	// ErrInsufficientShares is returned when a provider burns more shares than it owns.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrTokenMismatch is returned when a token is not one of the pool's pair.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrZeroAddress is returned when tokens would be paid out to the zero address.
	ErrZeroAddress = erc20.ErrZeroAddress
	// ErrReentrantCall is returned when a token callback re-enters a mutating pool method.
	ErrReentrantCall = errors.New("reentrant call")
)

// errorKinds is ordered so the most specific sentinel wins.
var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrZeroAmount, "ZeroAmount"},
	{ErrInsufficientAllowance, "InsufficientAllowance"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientLiquidity, "InsufficientLiquidity"},
	{ErrSlippageExceeded, "SlippageExceeded"},
	{ErrInsufficientOutputAmount, "InsufficientOutputAmount"},
	{ErrArithmeticOverflow, "ArithmeticOverflow"},
	{erc20.ErrArithmeticOverflow, "ArithmeticOverflow"},
	{erc20.ErrNilAmount, "ZeroAmount"},
	{calculator.ErrNilAmount, "ZeroAmount"},
	{ErrZeroAddress, "ZeroAddress"},
	{ErrInsufficientShares, "InsufficientShares"},
	{ErrTokenMismatch, "TokenMismatch"},
	{ErrReentrantCall, "ReentrantCall"},
}

// ErrorKind returns the machine-readable name of the pool error wrapped in err,
// or "Internal" when err is not one of the pool's sentinels.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// ErrorForKind returns the sentinel named by kind, or nil for an unknown kind.
// It is the inverse of ErrorKind for errors that crossed a process boundary.
func ErrorForKind(kind string) error {
	for _, k := range errorKinds {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}
