package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClipFinance/dex-engine/chains/evm"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
)

type transferArgs struct {
	commonArgs
	To       string `json:"to"`
	Token    string `json:"token,omitempty"`
	Amount   string `json:"amount"`
	Decimals *uint8 `json:"decimals,omitempty"`
}

type historyArgs struct {
	commonArgs
	Token   string `json:"token"`
	Address string `json:"address,omitempty"`
	Blocks  uint64 `json:"blocks,omitempty"`
}

func (t *Toolbox) transfer(ctx context.Context, raw json.RawMessage) (string, error) {
	var args transferArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	chain, err := t.chain(args.commonArgs)
	if err != nil {
		return "", err
	}

	result, err := chain.Transfer(ctx, &types.TransferRequest{
		WalletID: t.wallet(args.commonArgs),
		To:       args.To,
		Token:    args.Token,
		Amount:   args.Amount,
		Decimals: args.Decimals,
	})
	if err != nil {
		var revert *dexerrors.OnChainRevert
		if errors.As(err, &revert) && result != nil {
			return "", errors.Wrapf(err, "see %s", result.Explorer)
		}
		return "", err
	}

	var b strings.Builder
	if result.Status == types.TxConfirmed {
		b.WriteString("Transfer confirmed!\n\n")
	} else {
		b.WriteString("Transfer submitted but not confirmed yet. Check the explorer before retrying.\n\n")
	}
	fmt.Fprintf(&b, "Amount: %s %s\n", result.Amount, result.Token.Symbol)
	fmt.Fprintf(&b, "From: %s\nTo: %s\n", result.From, result.To)
	fmt.Fprintf(&b, "Tx: %s\nNonce: %d\n", result.TxHash, result.Nonce)
	if result.Status == types.TxConfirmed {
		fmt.Fprintf(&b, "Block: %d\nGas Used: %d\n", result.BlockNumber, result.GasUsed)
	}
	if result.Explorer != "" {
		fmt.Fprintf(&b, "Explorer: %s\n", result.Explorer)
	}
	return b.String(), nil
}

func (t *Toolbox) history(ctx context.Context, raw json.RawMessage) (string, error) {
	var args historyArgs
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

	address := args.Address
	if address == "" {
		if address, err = t.walletAddress(ctx, args.commonArgs); err != nil {
			return "", err
		}
	}
	token, err := chain.ResolveToken(ctx, args.Token)
	if err != nil {
		return "", err
	}

	events, err := chain.TransferHistory(ctx, address, token.Address, args.Blocks)
	if err != nil {
		return "", err
	}

	blocks := args.Blocks
	if blocks == 0 {
		blocks = evm.DefaultHistoryBlocks
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s transfers of %s over the last %d blocks\n\n", token.Symbol, address, blocks)
	if len(events) == 0 {
		b.WriteString("  No transfers found.\n")
		return b.String(), nil
	}
	for _, event := range events {
		direction, counterparty := "OUT", event.To
		if event.Incoming {
			direction, counterparty = "IN ", event.From
		}
		fmt.Fprintf(&b, "  #%d %s %s %s %s\n    %s\n",
			event.BlockNumber, direction, units(event.Value, token.Decimals), token.Symbol, counterparty,
			chain.Config().TxURL(event.TxHash))
	}
	fmt.Fprintf(&b, "\n%d transfers\n", len(events))
	return b.String(), nil
}
