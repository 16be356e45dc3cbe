package api

import (
	"errors"
	"fmt"
	"reflect"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/chain/types"
)

const (
	EArgumentRejected = iota + jsonrpc.FirstUserCode
	EMethodNotSupported
)

var (
	RPCErrors = jsonrpc.NewErrors()

	// ErrNotSupported is returned by RPC stubs for methods the remote side
	// does not expose.
	ErrNotSupported = xerrors.New("method not supported")

	// ErrBalanceUnavailable signals that neither balance source produced a reading.
	ErrBalanceUnavailable = xerrors.New("balance unavailable: no balance source returned a reading")

	_ error = (*ErrArgumentRejected)(nil)
	_ error = (*ErrMethodNotSupported)(nil)
	_ error = (*InsufficientFundsError)(nil)
	_ error = (*PaymentFailedError)(nil)
	_ error = (*DatasetResolutionError)(nil)
	_ error = (*UploadFailedError)(nil)
	_ error = (*NetworkMismatchError)(nil)
)

func init() {
	RPCErrors.Register(EArgumentRejected, new(*ErrArgumentRejected))
	RPCErrors.Register(EMethodNotSupported, new(*ErrMethodNotSupported))
}

func ErrorIsIn(err error, errorTypes []error) bool {
	for _, etype := range errorTypes {
		tmp := reflect.New(reflect.PointerTo(reflect.ValueOf(etype).Elem().Type())).Interface()
		if errors.As(err, tmp) {
			return true
		}
	}
	return false
}

// ErrArgumentRejected signals that a ledger refused a call because of the
// shape of its arguments. Nothing was submitted on chain.
type ErrArgumentRejected struct{}

func (ErrArgumentRejected) Error() string { return "ledger rejected call arguments" }

// ErrMethodNotSupported signals that the ledger does not implement a method.
type ErrMethodNotSupported struct{}

func (ErrMethodNotSupported) Error() string { return "ledger method not supported" }

// IsNotSupported reports whether err means the ledger lacks the method, either
// because the local stub is unset or because the remote side said so.
func IsNotSupported(err error) bool {
	return xerrors.Is(err, ErrNotSupported) || ErrorIsIn(err, []error{new(ErrMethodNotSupported)})
}

// IsArgumentRejection reports whether err means the call was refused before
// anything was submitted, so it is safe to retry with different arguments.
func IsArgumentRejection(err error) bool {
	return ErrorIsIn(err, []error{new(ErrArgumentRejected)})
}

// InsufficientFundsError reports a balance below the total deposit needed.
// Amounts are base units at Decimals scale.
type InsufficientFundsError struct {
	Required  abi.TokenAmount
	Available abi.TokenAmount
	Decimals  uint8
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s",
		types.FormatTokenAmount(e.Required, e.Decimals), types.FormatTokenAmount(e.Available, e.Decimals))
}

// PaymentFailedError is terminal: the ledger could not approve or deposit.
type PaymentFailedError struct {
	Cause error
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Cause)
}

func (e *PaymentFailedError) Unwrap() error { return e.Cause }

type DatasetResolutionError struct {
	Cause error
}

func (e *DatasetResolutionError) Error() string {
	return fmt.Sprintf("dataset resolution failed: %s", e.Cause)
}

func (e *DatasetResolutionError) Unwrap() error { return e.Cause }

// UploadFailedError is only produced before a piece CID exists.
type UploadFailedError struct {
	Cause error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload failed: %s", e.Cause)
}

func (e *UploadFailedError) Unwrap() error { return e.Cause }

type NetworkMismatchError struct {
	Expected uint64
	Actual   uint64
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("network mismatch: expected chain id %d, node reports %d", e.Expected, e.Actual)
}
