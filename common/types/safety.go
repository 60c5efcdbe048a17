package types

import (
	"context"
	"math/big"
	"time"
)

// HoneypotProbe is the result of quoting a small WETH buy of a token and
// the reverse sell of the bought amount.
//
// Fields:
// - Token: the probed token.
// - PoolFound: whether any fee tier answered the buy quote.
// - FeeTier: the tier the buy quote succeeded on.
// - BuyAmountIn: the WETH amount used for the buy quote.
// - BuyOut: the token amount the buy quote returned.
// - ReverseOut: the WETH amount the sell quote returned.
// - SellReverted: whether the sell quote reverted.
// - LossRatio: (BuyAmountIn - ReverseOut) / BuyAmountIn, clamped at zero.
// - Verdict: the loss bucket.
// - Reason: a short explanation for unknown or honeypot verdicts.
type HoneypotProbe struct {
	Token        string
	PoolFound    bool
	FeeTier      uint32
	BuyAmountIn  *big.Int
	BuyOut       *big.Int
	ReverseOut   *big.Int
	SellReverted bool
	LossRatio    *big.Rat
	Verdict      Verdict
	Reason       string
}

// HoneypotChecker probes tokens before they are bought.
type HoneypotChecker interface {
	// Probe never fails: analysis errors are reported in the probe itself.
	Probe(ctx context.Context, token string) *HoneypotProbe
}

// SafetyReport is the outcome of a token safety check. A report with Fatal
// set stopped at the bytecode check and carries no other findings.
//
// Fields:
// - Token: the checksummed token address.
// - Network: the chain the check ran on.
// - CodeSize: the deployed bytecode length; -1 when it could not be read.
// - Fatal: set when the address holds no contract code.
// - Standard: whether name, symbol, decimals and totalSupply all answered.
// - Missing: the ERC-20 functions that did not answer.
// - Decimals: the token decimals, 18 when unreadable.
// - Owner: the owner() result, empty when the function does not exist.
// - OwnerRenounced: whether Owner is the zero or dead address.
// - Probe: the honeypot round trip.
// - TotalSupply: the raw total supply, nil when unreadable.
// - Score: the accumulated risk score.
// - Level: the risk bucket of Score.
// - Flags: short descriptions of every finding that added to Score.
// - Warnings: checks that could not be run.
// - CheckedAt: when the report was produced.
type SafetyReport struct {
	Token          string
	Network        string
	CodeSize       int
	Fatal          string
	Standard       bool
	Missing        []string
	Decimals       uint8
	Owner          string
	OwnerRenounced bool
	Probe          *HoneypotProbe
	TotalSupply    *big.Int
	Score          int
	Level          RiskLevel
	Flags          []string
	Warnings       []string
	CheckedAt      time.Time
}

// BuyOnly reports whether the token can be bought but the sell quote reverts.
func (r *SafetyReport) BuyOnly() bool {
	return r.Probe != nil && r.Probe.PoolFound && r.Probe.SellReverted
}
