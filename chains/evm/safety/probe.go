package safety

import (
	"context"
	"math/big"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ProbeFeeTiers are the pool tiers tried for the buy quote, in order.
var ProbeFeeTiers = []uint32{3000, 10000, 500, 100}

// ProbeAmount is the WETH amount of the buy quote, 0.001 WETH.
var ProbeAmount = big.NewInt(1_000_000_000_000_000)

// NoPoolReason is the probe reason when no fee tier answers the buy quote.
const NoPoolReason = "no Uniswap V3 pool against WETH"

var (
	moderateLoss = big.NewRat(5, 100)
	highLoss     = big.NewRat(20, 100)
	honeypotLoss = big.NewRat(50, 100)
)

// Probe quotes a 0.001 WETH buy of token on the first fee tier that answers,
// then quotes selling the bought amount back on the same tier. The result
// never carries an error: a probe that could not run has VerdictUnknown and
// a Reason.
//
// Parameters:
// - ctx: the context for managing the request.
// - token: the token contract address.
//
// Returns:
// - *types.HoneypotProbe: the round trip and its verdict.
func (a *Analyzer) Probe(ctx context.Context, token string) *types.HoneypotProbe {
	probe := &types.HoneypotProbe{
		Token:       token,
		BuyAmountIn: new(big.Int).Set(ProbeAmount),
		Verdict:     types.VerdictUnknown,
	}

	config := a.chain.Config()
	if !config.SupportsSwaps() {
		probe.Reason = "swaps are not configured for " + config.Name
		return probe
	}
	if _, err := codec.ParseAddress(token); err != nil {
		probe.Reason = err.Error()
		return probe
	}
	weth := config.Contracts.WETH

	var lastErr error
	for _, fee := range ProbeFeeTiers {
		buyOut, err := a.chain.QuoteExactInputSingle(ctx, weth, token, probe.BuyAmountIn, fee)
		if err != nil || buyOut == nil || buyOut.Sign() == 0 {
			lastErr = err
			continue
		}

		probe.PoolFound = true
		probe.FeeTier = fee
		probe.BuyOut = buyOut

		reverseOut, err := a.chain.QuoteExactInputSingle(ctx, token, weth, buyOut, fee)
		if err != nil {
			if isTransport(err) {
				probe.Reason = errors.Wrap(err, "sell quote failed").Error()
				return probe
			}
			probe.SellReverted = true
			probe.Verdict = types.VerdictHoneypot
			probe.Reason = "sell quote reverted"
			a.logProbe(probe)
			return probe
		}

		probe.ReverseOut = reverseOut
		probe.LossRatio = LossRatio(probe.BuyAmountIn, reverseOut)
		probe.Verdict = Classify(probe.LossRatio)
		if probe.Verdict == types.VerdictHoneypot {
			probe.Reason = "round-trip loss " + LossPercent(probe.LossRatio).StringFixed(1) + "%"
		}
		a.logProbe(probe)
		return probe
	}

	if lastErr != nil && isTransport(lastErr) {
		probe.Reason = errors.Wrap(lastErr, "buy quote failed").Error()
	} else {
		probe.Reason = NoPoolReason
	}
	return probe
}

func (a *Analyzer) logProbe(probe *types.HoneypotProbe) {
	a.logger.WithFields(logrus.Fields{
		"chain":   a.chain.Config().Name,
		"token":   probe.Token,
		"feeTier": probe.FeeTier,
		"verdict": probe.Verdict,
	}).Debug("Honeypot probe finished")
}

// LossRatio returns (in - out) / in, clamped at zero.
func LossRatio(in, out *big.Int) *big.Rat {
	if in == nil || in.Sign() <= 0 || out == nil {
		return new(big.Rat)
	}
	loss := new(big.Rat).SetFrac(new(big.Int).Sub(in, out), in)
	if loss.Sign() < 0 {
		return new(big.Rat)
	}
	return loss
}

// Classify buckets a round-trip loss ratio into a verdict.
func Classify(loss *big.Rat) types.Verdict {
	switch {
	case loss.Cmp(moderateLoss) < 0:
		return types.VerdictNormal
	case loss.Cmp(highLoss) <= 0:
		return types.VerdictModerate
	case loss.Cmp(honeypotLoss) <= 0:
		return types.VerdictHigh
	default:
		return types.VerdictHoneypot
	}
}

// LossPercent converts a loss ratio to a percentage.
func LossPercent(loss *big.Rat) decimal.Decimal {
	if loss == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(loss, 8).Shift(2)
}

func isTransport(err error) bool {
	var rpcErr *dexerrors.RpcError
	return errors.As(err, &rpcErr) && rpcErr.IsTransport()
}
