package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type balanceArgs struct {
	commonArgs
	Token string `json:"token,omitempty"`
}

type portfolioArgs struct {
	commonArgs
	Tokens []string `json:"tokens,omitempty"`
}

func (t *Toolbox) balance(ctx context.Context, raw json.RawMessage) (string, error) {
	var args balanceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	chain, err := t.chain(args.commonArgs)
	if err != nil {
		return "", err
	}
	address, err := t.walletAddress(ctx, args.commonArgs)
	if err != nil {
		return "", err
	}

	if args.Token == "" {
		portfolio, err := chain.GetPortfolio(ctx, address, nil)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Wallet: %s\n\n", address)
		fmt.Fprintf(&b, "%s: %s %s\n", portfolio.Native.Token.Symbol, portfolio.Native.Amount, portfolio.Native.Token.Symbol)
		for _, balance := range portfolio.Balances {
			fmt.Fprintf(&b, "%s: %s\n", balance.Token.Symbol, balance.Amount)
		}
		return b.String(), nil
	}

	token, err := chain.ResolveToken(ctx, args.Token)
	if err != nil {
		return "", err
	}
	native, err := chain.GetTokenBalance(ctx, address, "")
	if err != nil {
		return "", err
	}
	nativeSymbol := chain.Config().NativeSymbol

	var b strings.Builder
	fmt.Fprintf(&b, "Wallet: %s\n\n", address)
	fmt.Fprintf(&b, "%s: %s %s\n", nativeSymbol, units(native, 18), nativeSymbol)
	if !token.Native {
		balance, err := chain.GetTokenBalance(ctx, address, token.Address)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s: %s\n", token.Symbol, units(balance, token.Decimals))
	}
	return b.String(), nil
}

func (t *Toolbox) portfolio(ctx context.Context, raw json.RawMessage) (string, error) {
	var args portfolioArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	chain, err := t.chain(args.commonArgs)
	if err != nil {
		return "", err
	}
	address, err := t.walletAddress(ctx, args.commonArgs)
	if err != nil {
		return "", err
	}

	portfolio, err := chain.GetPortfolio(ctx, address, args.Tokens)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio for %s\n\n", portfolio.Address)
	fmt.Fprintf(&b, "  %s: %s %s\n", portfolio.Native.Token.Symbol, portfolio.Native.Amount, portfolio.Native.Token.Symbol)
	for _, balance := range portfolio.Balances {
		fmt.Fprintf(&b, "  %s: %s\n", balance.Token.Symbol, balance.Amount)
	}
	if len(portfolio.Balances) == 0 {
		b.WriteString("\n  No ERC-20 token balances found.\n")
	}
	fmt.Fprintf(&b, "\nNetwork: %s (chain ID %d)\n", portfolio.Network, chain.Config().ChainID)
	return b.String(), nil
}
