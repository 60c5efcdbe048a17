package evm

import (
	"context"
	"time"

	"github.com/ClipFinance/dex-engine/common/poll"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WaitTransactionConfirmation polls for the receipt of a transaction every
// poll interval until it is mined or timeout elapses. Failed receipt
// queries are logged and polling continues.
//
// Parameters:
// - ctx: the context for managing the request.
// - txHash: the hash of the transaction to wait for.
// - timeout: how long to poll before reporting the transaction as pending.
//
// Returns:
// - types.TransactionStatus: confirmed for status 0x1, reverted for 0x0, pending on timeout.
// - *types.Receipt: the receipt, nil while pending.
// - error: an error if the client is not initialized or ctx is cancelled.
func (e *evm) WaitTransactionConfirmation(ctx context.Context, txHash string, timeout time.Duration) (types.TransactionStatus, *types.Receipt, error) {
	client, err := e.getClient()
	if err != nil {
		return types.TxPending, nil, err
	}

	var receipt *types.Receipt
	err = poll.Until(ctx, e.pollInterval, timeout, func(ctx context.Context) (bool, error) {
		r, err := client.GetTransactionReceipt(ctx, txHash)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"chain":  e.config.Name,
				"txHash": txHash,
			}).WithError(err).Debug("Failed to get transaction receipt")
			return false, nil
		}
		if r == nil {
			return false, nil
		}
		receipt = r
		return true, nil
	})

	switch {
	case errors.Is(err, poll.ErrTimeout):
		e.logger.WithFields(logrus.Fields{
			"chain":   e.config.Name,
			"txHash":  txHash,
			"timeout": timeout,
		}).Warn("Transaction still pending")
		return types.TxPending, nil, nil
	case err != nil:
		e.logger.WithField("txHash", txHash).WithError(err).Error("WaitTransactionConfirmation: context done")
		return types.TxPending, nil, err
	}

	if receipt.Succeeded() {
		return types.TxConfirmed, receipt, nil
	}

	e.logger.WithFields(logrus.Fields{
		"chain":  e.config.Name,
		"txHash": txHash,
		"block":  receipt.BlockNumber,
	}).Warn("Transaction reverted")
	return types.TxReverted, receipt, nil
}
