package evm

import (
	"context"
	"math/big"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// checkAllowance reads allowance(owner, spender) on token.
//
// Parameters:
// - ctx: the context for managing the request.
// - token: the ERC-20 contract.
// - owner: the token holder.
// - spender: the approved contract.
// - required: the amount the spender needs to move.
//
// Returns:
// - *types.Allowance: the current and required allowance.
// - error: an error if the call fails.
func (e *evm) checkAllowance(ctx context.Context, token, owner, spender codec.Address, required *big.Int) (*types.Allowance, error) {
	client, err := e.getClient()
	if err != nil {
		return nil, err
	}

	result, err := client.CallContract(ctx, token.Hex(), codec.EncodeAllowance(owner, spender))
	if err != nil {
		return nil, errors.Wrap(err, "failed to call allowance")
	}

	// A short answer is treated as zero allowance.
	current := new(big.Int)
	if len(result) >= codec.WordSize {
		if current, err = codec.DecodeUint256Word(result, 0); err != nil {
			return nil, err
		}
	}

	return &types.Allowance{
		Token:    token.Hex(),
		Owner:    owner.Hex(),
		Spender:  spender.Hex(),
		Current:  current,
		Required: new(big.Int).Set(required),
	}, nil
}

// ensureAllowance approves the swap router for 2^256-1 when the current
// allowance is below amount, and waits for the approval to be mined.
//
// Parameters:
// - ctx: the context for managing the request.
// - walletID: the vault wallet.
// - owner: the wallet address.
// - token: the input token.
// - amount: the raw amount the router will pull.
//
// Returns:
// - string: the approval transaction hash; empty when no approval was needed.
// - error: *errors.OnChainRevert when the approval reverts, ErrApprovalPending
// when it is not mined in time, or any submission error.
func (e *evm) ensureAllowance(ctx context.Context, walletID string, owner, token codec.Address, amount *big.Int) (string, error) {
	router, err := codec.ParseAddress(e.config.Contracts.SwapRouter02)
	if err != nil {
		return "", err
	}

	allowance, err := e.checkAllowance(ctx, token, owner, router, amount)
	if err != nil {
		return "", err
	}
	if allowance.Sufficient() {
		return "", nil
	}

	e.logger.WithFields(logrus.Fields{
		"chain":   e.config.Name,
		"token":   token.Hex(),
		"current": allowance.Current.String(),
	}).Info("Approving token for router")

	data, err := codec.EncodeApprove(router, codec.MaxUint256)
	if err != nil {
		return "", err
	}

	sent, err := e.submit(ctx, &txRequest{
		kind:     "approval",
		walletID: walletID,
		from:     owner,
		to:       token,
		value:    new(big.Int),
		data:     data,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to send approval")
	}

	status, _, err := e.WaitTransactionConfirmation(ctx, sent.hash, e.approvalTimeout)
	e.metrics.observe(e.config.Name, "approval", string(status))
	if err != nil {
		return sent.hash, err
	}

	switch status {
	case types.TxPending:
		return sent.hash, errors.Wrapf(dexerrors.ErrApprovalPending, "approval %s", sent.hash)
	case types.TxReverted:
		return sent.hash, &dexerrors.OnChainRevert{TxHash: sent.hash, Stage: "approval"}
	}

	e.logger.WithFields(logrus.Fields{
		"chain":  e.config.Name,
		"txHash": sent.hash,
	}).Info("Token approval confirmed")

	return sent.hash, nil
}
