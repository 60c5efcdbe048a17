package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
)

type swapArgs struct {
	commonArgs
	types.QuoteRequest
}

func (t *Toolbox) quote(ctx context.Context, raw json.RawMessage) (string, error) {
	var args swapArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	chain, err := t.chain(args.commonArgs)
	if err != nil {
		return "", err
	}

	quote, err := chain.Quote(ctx, &args.QuoteRequest)
	if err != nil {
		return "", err
	}

	in, out := symbols(quote, chain.Config().NativeSymbol)
	var b strings.Builder
	fmt.Fprintf(&b, "Swap Quote: %s %s -> %s %s\n\n",
		units(quote.AmountIn, quote.TokenIn.Decimals), in, units(quote.AmountOut, quote.TokenOut.Decimals), out)
	writeQuote(&b, quote, in, out)
	fmt.Fprintf(&b, "Estimated Gas: %d\n", quote.GasEstimate)
	fmt.Fprintf(&b, "\nUse %s to execute this trade.\n", OpSwap)
	return b.String(), nil
}

func (t *Toolbox) swap(ctx context.Context, raw json.RawMessage) (string, error) {
	var args swapArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	chain, err := t.chain(args.commonArgs)
	if err != nil {
		return "", err
	}

	result, err := chain.Swap(ctx, &types.SwapRequest{WalletID: t.wallet(args.commonArgs), QuoteRequest: args.QuoteRequest})
	if err != nil {
		var revert *dexerrors.OnChainRevert
		if errors.As(err, &revert) && revert.Stage == "swap" && result != nil {
			return "", errors.Wrapf(err, "see %s", result.Explorer)
		}
		return "", err
	}

	quote := result.Quote
	in, out := symbols(quote, chain.Config().NativeSymbol)

	var b strings.Builder
	switch result.Status {
	case types.TxConfirmed:
		b.WriteString("Swap confirmed!\n\n")
	default:
		b.WriteString("Swap submitted but not confirmed yet. Check the explorer before retrying.\n\n")
	}
	fmt.Fprintf(&b, "Sold: %s %s\n", units(quote.AmountIn, quote.TokenIn.Decimals), in)
	fmt.Fprintf(&b, "Expected: %s %s\n", units(quote.AmountOut, quote.TokenOut.Decimals), out)
	writeQuote(&b, quote, in, out)
	if quote.NativeOut {
		fmt.Fprintf(&b, "Output is delivered as %s.\n", quote.TokenOut.Symbol)
	}
	b.WriteString("\n")
	if result.ApprovalTxHash != "" {
		fmt.Fprintf(&b, "Approval Tx: %s\n", result.ApprovalTxHash)
	}
	fmt.Fprintf(&b, "Tx: %s\n", result.TxHash)
	if result.Status == types.TxConfirmed {
		fmt.Fprintf(&b, "Block: %d\nGas Used: %d\n", result.BlockNumber, result.GasUsed)
	}
	if result.Explorer != "" {
		fmt.Fprintf(&b, "Explorer: %s\n", result.Explorer)
	}
	return b.String(), nil
}

// symbols returns the display symbols of a quote, naming the native token
// instead of its wrapped form.
func symbols(quote *types.Quote, nativeSymbol string) (in, out string) {
	in, out = quote.TokenIn.Symbol, quote.TokenOut.Symbol
	if quote.NativeIn {
		in = nativeSymbol
	}
	if quote.NativeOut {
		out = nativeSymbol
	}
	return in, out
}

func writeQuote(b *strings.Builder, quote *types.Quote, in, out string) {
	fmt.Fprintf(b, "Minimum Output (%s%% slippage): %s %s\n",
		bpsPercent(quote.SlippageBps), units(quote.MinAmountOut, quote.TokenOut.Decimals), out)
	fmt.Fprintf(b, "Exchange Rate: 1 %s = %s %s\n",
		in, rate(quote.AmountIn, quote.TokenIn.Decimals, quote.AmountOut, quote.TokenOut.Decimals), out)
	if quote.Route.MultiHop {
		fmt.Fprintf(b, "Route: %s -> WETH -> %s (multi-hop)\n", in, out)
	} else {
		fmt.Fprintf(b, "Route: %s -> %s (direct)\n", in, out)
	}
	fmt.Fprintf(b, "Fee Tier: %s%%\n", feePercent(quote.FeeTier))
}
