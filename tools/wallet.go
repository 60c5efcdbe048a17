package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClipFinance/dex-engine/chainmanager"
	"github.com/ClipFinance/dex-engine/chains/evm/signer"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/vault"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func (t *Toolbox) walletCreate(ctx context.Context, raw json.RawMessage) (string, error) {
	var args commonArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if t.wallets == nil {
		return "", errors.Wrap(dexerrors.ErrWalletNotFound, "no wallet store configured")
	}
	walletID := t.wallet(args)

	exists, err := t.wallets.HasWallet(ctx, walletID)
	if err != nil {
		return "", err
	}
	if exists {
		address, err := t.wallets.WalletAddress(ctx, walletID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Wallet already exists!\n\nWallet: %s\nAddress: %s\n\nUse another wallet id, for example %s, to create a new wallet.",
			walletID, address, vault.NewWalletID()), nil
	}

	key, address, err := signer.GenerateKey()
	if err != nil {
		return "", err
	}
	err = t.wallets.StoreWallet(ctx, walletID, address.Hex(), key)
	for i := range key {
		key[i] = 0
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to store wallet")
	}

	network := "Not connected (no RPC configured)"
	if chain, err := t.chain(args); err == nil {
		network = chain.Config().Name
	} else if args.ChainID != 0 {
		network = chainmanager.ChainName(args.ChainID)
	}

	t.logger.WithFields(logrus.Fields{
		"wallet":  walletID,
		"address": address.Hex(),
	}).Info("Created wallet")

	return fmt.Sprintf("New wallet created!\n\nWallet: %s\nAddress: %s\nNetwork: %s\n\n"+
		"This wallet has zero balance. Send ETH to this address to fund it before trading.\n"+
		"The private key is stored in the vault and is never shown.",
		walletID, address.Hex(), network), nil
}
