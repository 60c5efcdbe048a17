package evm

import (
	"context"
	"math/big"

	"github.com/ClipFinance/dex-engine/chains/evm/signer"
	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// txRequest describes a transaction to be built, signed and broadcast from
// a vault wallet.
type txRequest struct {
	kind        string        // "transfer", "approval" or "swap", used in logs, metrics and revert errors.
	walletID    string        // Vault wallet that signs.
	from        codec.Address // Address of the wallet.
	to          codec.Address // Recipient or contract.
	value       *big.Int      // Wei sent along.
	data        []byte        // Calldata.
	gasLimit    uint64        // Fixed gas limit; zero estimates.
	fallbackGas uint64        // Gas limit used when estimation fails.
}

// sentTx is a broadcast transaction.
type sentTx struct {
	hash  string
	nonce uint64
	gas   uint64
}

// Transfer sends native ETH or an ERC-20 token from a vault wallet and
// polls for the receipt.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the transfer request.
//
// Returns:
// - *types.TransferResult: the transfer details; pending when no receipt arrived in time.
// - error: an error if validation or submission fails, *errors.OnChainRevert if the transfer reverted.
func (e *evm) Transfer(ctx context.Context, req *types.TransferRequest) (*types.TransferResult, error) {
	if req == nil {
		return nil, errors.New("transfer request is nil")
	}

	to, err := codec.ParseAddress(req.To)
	if err != nil {
		return nil, errors.Wrap(err, "invalid recipient")
	}

	tokenInput := req.Token
	if tokenInput == "" {
		tokenInput = e.registry.Native().Symbol
	}
	token, err := e.registry.ResolveOnChain(ctx, e, tokenInput, req.Decimals)
	if err != nil {
		return nil, err
	}

	amount, err := codec.ParseUnits(req.Amount, token.Decimals)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, dexerrors.Encoding("amount", req.Amount, "must be greater than zero")
	}

	from, err := e.walletAddress(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	client, err := e.getClient()
	if err != nil {
		return nil, err
	}

	nativeBalance, err := client.GetBalance(ctx, from.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get native balance")
	}

	tx := &txRequest{
		kind:     "transfer",
		walletID: req.WalletID,
		from:     from,
	}

	if token.Native {
		if nativeBalance.Cmp(amount) < 0 {
			return nil, errors.Wrapf(dexerrors.ErrInsufficientBalance, "have %s %s, need %s %s",
				codec.FormatUnits(nativeBalance, 18), token.Symbol, codec.FormatUnits(amount, 18), token.Symbol)
		}
		tx.to = to
		tx.value = amount
		tx.gasLimit = nativeTransferGas
	} else {
		tokenAddress, err := codec.ParseAddress(token.Address)
		if err != nil {
			return nil, err
		}

		balance, err := e.tokenBalance(ctx, tokenAddress, from)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(amount) < 0 {
			return nil, errors.Wrapf(dexerrors.ErrInsufficientBalance, "have %s %s, need %s %s",
				codec.FormatUnits(balance, token.Decimals), token.Symbol, codec.FormatUnits(amount, token.Decimals), token.Symbol)
		}
		if nativeBalance.Sign() == 0 {
			return nil, dexerrors.ErrNoGasBalance
		}

		data, err := codec.EncodeTransfer(to, amount)
		if err != nil {
			return nil, err
		}
		tx.to = tokenAddress
		tx.value = new(big.Int)
		tx.data = data
		tx.fallbackGas = tokenTransferFallbackGas
	}

	sent, err := e.submit(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &types.TransferResult{
		Status:   types.TxPending,
		TxHash:   sent.hash,
		From:     from.Hex(),
		To:       to.Hex(),
		Token:    token,
		Amount:   codec.FormatUnits(amount, token.Decimals),
		Nonce:    sent.nonce,
		Explorer: e.config.TxURL(sent.hash),
	}

	status, receipt, err := e.WaitTransactionConfirmation(ctx, sent.hash, e.receiptTimeout)
	result.Status = status
	e.metrics.observe(e.config.Name, tx.kind, string(status))
	if err != nil {
		return result, err
	}
	if receipt != nil {
		result.BlockNumber = receipt.BlockNumber
		result.GasUsed = receipt.GasUsed
	}
	if status == types.TxReverted {
		return result, &dexerrors.OnChainRevert{TxHash: sent.hash, Stage: tx.kind}
	}

	return result, nil
}

// walletAddress looks up and parses the address of a vault wallet.
func (e *evm) walletAddress(ctx context.Context, walletID string) (codec.Address, error) {
	if e.vault == nil {
		return codec.Address{}, errors.Wrap(dexerrors.ErrNotImplemented, "no vault configured")
	}

	address, err := e.vault.WalletAddress(ctx, walletID)
	if err != nil {
		return codec.Address{}, err
	}
	return codec.ParseAddress(address)
}

// submit builds, signs and broadcasts req while holding the wallet's
// submission lock, so concurrent callers get consecutive nonces.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the transaction to send.
//
// Returns:
// - *sentTx: the hash, nonce and gas limit of the broadcast transaction.
// - error: an error if any step before or during broadcast fails.
func (e *evm) submit(ctx context.Context, req *txRequest) (*sentTx, error) {
	release, err := e.locks.acquire(ctx, req.from.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire wallet lock")
	}
	defer release()

	tx, err := e.prepareTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	hash, err := e.signAndSendTransaction(ctx, req, tx)
	if err != nil {
		e.metrics.observe(e.config.Name, req.kind, "failed")
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"chain":  e.config.Name,
		"kind":   req.kind,
		"from":   req.from.Hex(),
		"to":     req.to.Hex(),
		"nonce":  tx.Nonce,
		"gas":    tx.Gas,
		"txHash": hash,
	}).Info("Transaction broadcast")

	return &sentTx{hash: hash, nonce: tx.Nonce, gas: tx.Gas}, nil
}

// prepareTransaction prepares an EIP-1559 transaction for req.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the transaction to prepare.
//
// Returns:
// - *signer.UnsignedTx: the prepared transaction.
// - error: an error if the nonce, fee or gas lookup fails.
func (e *evm) prepareTransaction(ctx context.Context, req *txRequest) (*signer.UnsignedTx, error) {
	client, err := e.getClient()
	if err != nil {
		return nil, err
	}

	nonce, err := client.GetTransactionCount(ctx, req.from.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get nonce")
	}

	gasPriceData, err := e.getEIP1559GasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get EIP-1559 gas price")
	}

	value := req.value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit := req.gasLimit
	if gasLimit == 0 {
		gasLimit, err = e.estimateGasLimit(ctx, req.from.Hex(), req.to.Hex(), value, req.data, req.fallbackGas)
		if err != nil {
			return nil, err
		}
	}

	return &signer.UnsignedTx{
		ChainID:              e.config.ChainID,
		Nonce:                nonce,
		MaxPriorityFeePerGas: gasPriceData.MaxPriorityFeePerGas,
		MaxFeePerGas:         gasPriceData.MaxFeePerGas,
		Gas:                  gasLimit,
		To:                   req.to,
		Value:                value,
		Data:                 req.data,
	}, nil
}

// signAndSendTransaction signs tx with the wallet's key and broadcasts it.
// The key is fetched from the vault for this call only and wiped before
// the transaction is sent.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the originating request, naming the wallet.
// - tx: the prepared transaction.
//
// Returns:
// - string: the transaction hash.
// - error: an error if the key is unavailable, does not match the wallet, or the broadcast fails.
func (e *evm) signAndSendTransaction(ctx context.Context, req *txRequest, tx *signer.UnsignedTx) (string, error) {
	client, err := e.getClient()
	if err != nil {
		return "", err
	}

	key, err := e.vault.PrivateKey(ctx, req.walletID)
	if err != nil {
		return "", errors.Wrap(err, "failed to load wallet key")
	}

	var signed *signer.SignedTx
	err = signer.WithKey(key, func(s signer.Signer) error {
		if s.Address() != req.from {
			return errors.Errorf("key of wallet %s does not match address %s", req.walletID, req.from.Hex())
		}
		signed, err = s.SignTx(tx)
		return err
	})
	if err != nil {
		e.logger.WithField("chain", e.config.Name).WithError(err).Error("Failed to sign transaction")
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	hash, err := client.SendRawTransaction(ctx, signed.Raw)
	if err != nil {
		e.logger.WithField("chain", e.config.Name).WithError(err).Error("Failed to send transaction")
		return "", errors.Wrap(err, "failed to send transaction")
	}

	return hash, nil
}
