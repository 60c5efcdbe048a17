package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClipFinance/dex-engine/chains/evm/safety"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
)

type tokenArgs struct {
	commonArgs
	Token string `json:"token"`
}

func (t *Toolbox) tokenInfo(ctx context.Context, raw json.RawMessage) (string, error) {
	var args tokenArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Token == "" {
		return "", dexerrors.Encoding("token", "", "is required")
	}
	chain, err := t.chain(args.commonArgs)
	if err != nil {
		return "", err
	}

	info, err := chain.TokenInfo(ctx, args.Token)
	if err != nil {
		return "", err
	}
	unreadable := map[string]bool{}
	for _, field := range info.Unreadable {
		unreadable[field] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Token Analysis: %s\n\n", info.Address)
	if info.CodeSize == 0 {
		b.WriteString("  Contract: NO CODE, this is a wallet address, not a token!\n")
		fmt.Fprintf(&b, "\n  Network: %s (chain ID %d)\n", info.Network, chain.Config().ChainID)
		return b.String(), nil
	}

	writeField(&b, "Name", info.Name, unreadable["name"], "Could not read (non-standard contract)")
	writeField(&b, "Symbol", info.Symbol, unreadable["symbol"], "Could not read")
	if info.DecimalsKnown {
		fmt.Fprintf(&b, "  Decimals: %d\n", info.Decimals)
	} else {
		b.WriteString("  Decimals: 18 (assumed)\n")
	}
	if info.TotalSupply != nil {
		fmt.Fprintf(&b, "  Total Supply: %s\n", units(info.TotalSupply, info.Decimals))
	} else {
		b.WriteString("  Total Supply: Could not read\n")
	}
	switch {
	case unreadable["owner"]:
		b.WriteString("  Owner: No owner() function (may be immutable) [SAFE]\n")
	case info.OwnerRenounced:
		fmt.Fprintf(&b, "  Owner: Renounced (%s) [SAFE]\n", info.Owner)
	default:
		fmt.Fprintf(&b, "  Owner: %s [WARNING: not renounced, owner can modify contract]\n", info.Owner)
	}
	fmt.Fprintf(&b, "  Contract: %d bytes of bytecode [OK]\n", info.CodeSize)
	fmt.Fprintf(&b, "  Contract %s balance: %s %s\n", chain.Config().NativeSymbol, units(info.ContractETH, 18), chain.Config().NativeSymbol)

	b.WriteString("\n  Swap Viability:\n")
	writeProbe(&b, t.analyzer(chain).Probe(ctx, info.Address), info.Decimals, "    ")

	if info.Explorer != "" {
		fmt.Fprintf(&b, "\n  Explorer: %s\n", info.Explorer)
	}
	fmt.Fprintf(&b, "\n  Network: %s (chain ID %d)\n", info.Network, chain.Config().ChainID)
	return b.String(), nil
}

func writeField(b *strings.Builder, label, value string, failed bool, fallback string) {
	if failed {
		value = fallback
	}
	fmt.Fprintf(b, "  %s: %s\n", label, value)
}

// writeProbe renders a honeypot probe, amounts in whole tokens.
func writeProbe(b *strings.Builder, probe *types.HoneypotProbe, decimals uint8, indent string) {
	if !probe.PoolFound {
		fmt.Fprintf(b, "%sNo pool to test: %s\n", indent, probe.Reason)
		return
	}
	fmt.Fprintf(b, "%s[OK] BUY works: %s WETH -> %s tokens (%s%% fee)\n", indent,
		units(probe.BuyAmountIn, 18), units(probe.BuyOut, decimals), feePercent(probe.FeeTier))

	switch {
	case probe.SellReverted:
		fmt.Fprintf(b, "%s[DANGER] SELL FAILED, quoter reverted. LIKELY HONEYPOT!\n", indent)
		return
	case probe.Verdict == types.VerdictUnknown:
		fmt.Fprintf(b, "%s[WARNING] Could not test the sell side: %s\n", indent, probe.Reason)
		return
	}

	fmt.Fprintf(b, "%s[OK] SELL works: %s tokens -> %s WETH\n", indent, units(probe.BuyOut, decimals), units(probe.ReverseOut, 18))
	loss := safety.LossPercent(probe.LossRatio).StringFixed(1)
	switch probe.Verdict {
	case types.VerdictHoneypot:
		fmt.Fprintf(b, "%s[DANGER] EXTREME TAX: %s%% round-trip loss, probable honeypot\n", indent, loss)
	case types.VerdictHigh:
		fmt.Fprintf(b, "%s[WARNING] HIGH TAX: %s%% round-trip loss\n", indent, loss)
	case types.VerdictModerate:
		fmt.Fprintf(b, "%s[WARNING] Moderate tax: %s%% round-trip loss\n", indent, loss)
	default:
		fmt.Fprintf(b, "%s[OK] Normal: %s%% round-trip loss (pool fees)\n", indent, loss)
	}
}

func (t *Toolbox) safetyCheck(ctx context.Context, raw json.RawMessage) (string, error) {
	var args tokenArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Token == "" {
		return "", dexerrors.Encoding("token", "", "is required")
	}
	chain, err := t.chain(args.commonArgs)
	if err != nil {
		return "", err
	}

	address := args.Token
	if token, err := chain.ResolveToken(ctx, args.Token); err == nil && !token.Native {
		address = token.Address
	}

	report, err := t.analyzer(chain).CheckToken(ctx, address)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Safety Check: %s on %s\n\n", report.Token, report.Network)
	if report.Fatal != "" {
		fmt.Fprintf(&b, "FATAL: %s, this is a wallet address, not a token!\n", report.Fatal)
		fmt.Fprintf(&b, "\nRisk Score: %d/%d\n%s\n", safety.MaxScore, safety.MaxScore, levelLine(report.Level))
		return b.String(), nil
	}

	if report.CodeSize > 0 {
		fmt.Fprintf(&b, "[OK] Contract verified (%d bytes)\n", report.CodeSize)
	}
	if report.Standard {
		b.WriteString("[OK] ERC-20 standard compliant (name, symbol, decimals, totalSupply)\n")
	} else {
		fmt.Fprintf(&b, "[WARNING] Non-standard ERC-20, missing: %s\n", strings.Join(report.Missing, ", "))
	}
	switch {
	case report.Owner == "":
		b.WriteString("[OK] No owner() function, likely immutable\n")
	case report.OwnerRenounced:
		fmt.Fprintf(&b, "[OK] Ownership renounced (owner = %s)\n", report.Owner)
	default:
		fmt.Fprintf(&b, "[WARNING] Owner: %s can potentially modify contract\n", report.Owner)
	}

	b.WriteString("\nHoneypot Test:\n")
	if report.Probe != nil {
		writeProbe(&b, report.Probe, report.Decimals, "  ")
	}

	if report.TotalSupply != nil {
		fmt.Fprintf(&b, "\nSupply: %s total tokens\n", units(report.TotalSupply, report.Decimals))
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(&b, "[WARNING] %s\n", warning)
	}

	b.WriteString("\n----------------------------------------\n")
	fmt.Fprintf(&b, "Risk Score: %d/%d\n", safety.DisplayScore(report.Score), safety.MaxScore)
	b.WriteString(levelLine(report.Level) + "\n")
	if len(report.Flags) > 0 {
		fmt.Fprintf(&b, "\nFlags: %s\n", strings.Join(report.Flags, ", "))
	}
	if report.BuyOnly() {
		b.WriteString("\nVERDICT: HONEYPOT. You can buy but CANNOT sell. Do NOT trade this token.\n")
	}
	return b.String(), nil
}

func levelLine(level types.RiskLevel) string {
	switch level {
	case types.RiskLow:
		return "LOW RISK: all checks passed"
	case types.RiskModerate:
		return "MODERATE RISK: some concerns, proceed with caution"
	case types.RiskHigh:
		return "HIGH RISK: significant red flags detected"
	default:
		return "CRITICAL RISK: DO NOT TRADE, multiple severe issues"
	}
}
