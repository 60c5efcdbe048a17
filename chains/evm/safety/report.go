package safety

import (
	"context"
	"fmt"

	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MaxScore is the ceiling the risk score is displayed against.
const MaxScore = 30

var deadAddress = codec.MustParseAddress("0x000000000000000000000000000000000000dEaD")

// CheckToken runs the token safety checks: bytecode, ERC-20 compliance,
// ownership, the honeypot probe and total supply. Reports are cached per
// token for the analyzer TTL. Failed reads become report fields; only an
// invalid address is an error.
//
// Parameters:
// - ctx: the context for managing the request.
// - token: the token contract address.
//
// Returns:
// - *types.SafetyReport: the findings with their risk score.
// - error: an error if token is not an address or ctx is done.
func (a *Analyzer) CheckToken(ctx context.Context, token string) (*types.SafetyReport, error) {
	address, err := codec.ParseAddress(token)
	if err != nil {
		return nil, err
	}
	if report := a.cached(address.Hex()); report != nil {
		return report, nil
	}

	report := &types.SafetyReport{
		Token:     address.Hex(),
		Network:   a.chain.Config().Name,
		Decimals:  18,
		CheckedAt: a.now(),
	}

	code, err := a.chain.GetCode(ctx, address.Hex())
	switch {
	case err != nil:
		report.CodeSize = -1
		report.Warnings = append(report.Warnings, "could not check contract code: "+err.Error())
	case len(code) == 0:
		report.Fatal = "address has no contract code"
		report.Level = types.RiskCritical
		a.store(address.Hex(), report)
		return report, nil
	default:
		report.CodeSize = len(code)
	}

	a.checkStandard(ctx, address, report)
	a.checkOwner(ctx, address, report)

	report.Probe = a.Probe(ctx, address.Hex())
	scoreProbe(report)

	if out, err := a.chain.CallContract(ctx, address.Hex(), codec.EncodeTotalSupply()); err == nil {
		if supply, err := codec.DecodeUint256Word(out, 0); err == nil {
			report.TotalSupply = supply
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "safety check interrupted")
	}

	report.Level = Level(report.Score)
	a.store(address.Hex(), report)

	a.logger.WithFields(logrus.Fields{
		"chain": report.Network,
		"token": report.Token,
		"score": report.Score,
		"level": report.Level,
	}).Info("Token safety check finished")

	return report, nil
}

func (a *Analyzer) checkStandard(ctx context.Context, token codec.Address, report *types.SafetyReport) {
	calls := []struct {
		name string
		data []byte
	}{
		{"name", codec.EncodeName()},
		{"symbol", codec.EncodeSymbol()},
		{"decimals", codec.EncodeDecimals()},
		{"totalSupply", codec.EncodeTotalSupply()},
	}

	for _, call := range calls {
		out, err := a.chain.CallContract(ctx, token.Hex(), call.data)
		if err != nil {
			report.Missing = append(report.Missing, call.name)
			continue
		}
		if call.name == "decimals" {
			if v, err := codec.DecodeUint256Word(out, 0); err == nil && v.IsUint64() && v.Uint64() <= 255 {
				report.Decimals = uint8(v.Uint64())
			}
		}
	}

	report.Standard = len(report.Missing) == 0
	if !report.Standard {
		report.Score += 2
		report.Flags = append(report.Flags, "Non-standard ERC-20")
	}
}

// checkOwner treats a reverting owner() as an ownerless contract.
func (a *Analyzer) checkOwner(ctx context.Context, token codec.Address, report *types.SafetyReport) {
	out, err := a.chain.CallContract(ctx, token.Hex(), codec.EncodeOwner())
	if err != nil {
		return
	}
	owner, err := codec.DecodeAddressWord(out, 0)
	if err != nil {
		return
	}

	report.Owner = owner.Hex()
	report.OwnerRenounced = owner.IsZero() || owner == deadAddress
	if !report.OwnerRenounced {
		report.Score += 3
		report.Flags = append(report.Flags, "Owner not renounced")
	}
}

func scoreProbe(report *types.SafetyReport) {
	probe := report.Probe
	if !probe.PoolFound {
		if probe.Verdict == types.VerdictUnknown && probe.Reason != NoPoolReason {
			report.Warnings = append(report.Warnings, "honeypot probe: "+probe.Reason)
			return
		}
		report.Score += 5
		report.Flags = append(report.Flags, "No Uniswap V3 pool")
		return
	}
	if probe.SellReverted {
		report.Score += 15
		report.Flags = append(report.Flags, "Sell blocked, honeypot")
		return
	}

	loss := LossPercent(probe.LossRatio).StringFixed(1)
	switch probe.Verdict {
	case types.VerdictHoneypot:
		report.Score += 10
		report.Flags = append(report.Flags, fmt.Sprintf("Extreme tax: %s%%", loss))
	case types.VerdictHigh:
		report.Score += 5
		report.Flags = append(report.Flags, fmt.Sprintf("High tax: %s%%", loss))
	case types.VerdictModerate:
		report.Score += 2
		report.Flags = append(report.Flags, fmt.Sprintf("Tax: %s%%", loss))
	case types.VerdictUnknown:
		report.Warnings = append(report.Warnings, "honeypot probe: "+probe.Reason)
	}
}

// Level buckets a risk score.
func Level(score int) types.RiskLevel {
	switch {
	case score <= 0:
		return types.RiskLow
	case score <= 5:
		return types.RiskModerate
	case score <= 10:
		return types.RiskHigh
	default:
		return types.RiskCritical
	}
}

// DisplayScore caps score at MaxScore.
func DisplayScore(score int) int {
	if score > MaxScore {
		return MaxScore
	}
	return score
}
