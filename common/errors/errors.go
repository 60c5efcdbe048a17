package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrChainNotFound       = errors.New("chain not found")
	ErrInvalidChainID      = errors.New("invalid chain id")
	ErrDatabaseConnect     = errors.New("failed to connect to database")
	ErrInvalidConfig       = errors.New("invalid chain configuration")
	ErrChainExists         = errors.New("chain already exists in registry")
	ErrChainMismatch       = errors.New("rpc endpoint reports a different chain id")
	ErrNotImplemented      = errors.New("functionality not implemented")
	ErrSwapNotSupported    = errors.New("swaps are not configured for this chain")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("wallet already exists")
	ErrUnknownToken        = errors.New("unknown token")
	ErrSlippageTooHigh     = errors.New("slippage exceeds maximum allowed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoGasBalance        = errors.New("no native balance for gas fees")
	ErrApprovalPending     = errors.New("approval transaction not mined before timeout")
	ErrApprovalRequired    = errors.New("operation requires approval")
	ErrTimeout             = errors.New("timed out")
)

// RpcError is a failed JSON-RPC round-trip. Code is zero for transport
// failures and carries the node's error code otherwise.
type RpcError struct {
	Method  string
	Code    int
	Message string
	Err     error
}

func (e *RpcError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc %s: error %d: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("rpc %s: %s", e.Method, e.Message)
}

func (e *RpcError) Unwrap() error { return e.Err }

// IsTransport reports whether the call never produced a JSON-RPC response.
func (e *RpcError) IsTransport() bool { return e.Code == 0 }

// EncodingError reports malformed input: bad hex, wrong address length,
// decimal overflow and the like.
type EncodingError struct {
	Field  string
	Value  string
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// OnChainRevert is a transaction that was mined with status 0x0.
type OnChainRevert struct {
	TxHash string
	Stage  string // "approval", "swap" or "transfer"
}

func (e *OnChainRevert) Error() string {
	return fmt.Sprintf("%s transaction reverted: %s", e.Stage, e.TxHash)
}

// NoLiquidity means no pool answered the quote, single-hop or via WETH.
type NoLiquidity struct {
	TokenIn  string
	TokenOut string
	FeeTier  uint32
	MultiHop bool
	Err      error
}

func (e *NoLiquidity) Error() string {
	route := "direct"
	if e.MultiHop {
		route = "direct or via WETH"
	}
	return fmt.Sprintf("no liquidity for %s -> %s at fee tier %d (%s)", e.TokenIn, e.TokenOut, e.FeeTier, route)
}

func (e *NoLiquidity) Unwrap() error { return e.Err }

// HoneypotDetected blocks a swap into a token that cannot be sold back.
type HoneypotDetected struct {
	Token  string
	Reason string
}

func (e *HoneypotDetected) Error() string {
	return fmt.Sprintf("token %s looks like a honeypot: %s", e.Token, e.Reason)
}

// Encoding builds an *EncodingError.
func Encoding(field, value, reason string) error {
	return &EncodingError{Field: field, Value: value, Reason: reason}
}
