package jsonrpc

import (
	"errors"

	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/ethereum/go-ethereum/rpc"
)

// InternalErrorCode is the code of errors outside the pool taxonomy.
const InternalErrorCode = -32000

var errorCodes = map[string]int{
	"ZeroAmount":               -32001,
	"InsufficientAllowance":    -32002,
	"InsufficientBalance":      -32003,
	"InsufficientLiquidity":    -32004,
	"SlippageExceeded":         -32005,
	"InsufficientOutputAmount": -32006,
	"ArithmeticOverflow":       -32007,
	"InsufficientShares":       -32008,
	"TokenMismatch":            -32009,
	"ReentrantCall":            -32010,
	"ZeroAddress":              -32011,
}

// Error is a pool error as carried over JSON-RPC. The kind travels as the error data.
type Error struct {
	Code    int
	Kind    string
	Message string
}

var (
	_ rpc.Error     = (*Error)(nil)
	_ rpc.DataError = (*Error)(nil)
)

func (e *Error) Error() string  { return e.Message }
func (e *Error) ErrorCode() int { return e.Code }
func (e *Error) ErrorData() any { return e.Kind }

// Unwrap exposes the matching pool sentinel, so errors.Is works on both sides of the wire.
func (e *Error) Unwrap() error {
	return reservepool.ErrorForKind(e.Kind)
}

// NewError converts err into an *Error. It returns nil for a nil err.
func NewError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	kind := reservepool.ErrorKind(err)
	code, ok := errorCodes[kind]
	if !ok {
		code = InternalErrorCode
	}
	return &Error{Code: code, Kind: kind, Message: err.Error()}
}

// FromRPCError rebuilds an *Error from an error returned by rpc.Client. Errors
// that carry no pool kind, such as transport failures, are returned unchanged.
func FromRPCError(err error) error {
	if err == nil {
		return nil
	}
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}
	kind, ok := dataErr.ErrorData().(string)
	if !ok {
		return err
	}
	code := InternalErrorCode
	var codeErr rpc.Error
	if errors.As(err, &codeErr) {
		code = codeErr.ErrorCode()
	}
	return &Error{Code: code, Kind: kind, Message: dataErr.Error()}
}
