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

// Swap executes an exact-input swap on SwapRouter02 from a vault wallet.
// The steps are:
//  1. re-quote;
//  2. when the chain's safety guard is on, probe unlisted output tokens for honeypots;
//  3. approve the router for ERC-20 input if the allowance is short;
//  4. send exactInputSingle or exactInput, with value only for native input;
//  5. poll the receipt.
//
// The router sends native output as WETH.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the swap request.
//
// Returns:
// - *types.SwapResult: the outcome; pending when no receipt arrived in time.
// - error: *errors.OnChainRevert when the approval or the swap reverts,
// *errors.HoneypotDetected when the guard refuses the token, or any error
// from quoting and submission.
func (e *evm) Swap(ctx context.Context, req *types.SwapRequest) (*types.SwapResult, error) {
	if req == nil {
		return nil, errors.New("swap request is nil")
	}

	from, err := e.walletAddress(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	quote, err := e.Quote(ctx, &req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	if err := e.guardToken(ctx, quote); err != nil {
		return nil, err
	}

	if err := e.checkSwapBalance(ctx, from, quote); err != nil {
		return nil, err
	}

	router, err := codec.ParseAddress(e.config.Contracts.SwapRouter02)
	if err != nil {
		return nil, err
	}
	tokenIn, err := codec.ParseAddress(quote.TokenIn.Address)
	if err != nil {
		return nil, err
	}
	tokenOut, err := codec.ParseAddress(quote.TokenOut.Address)
	if err != nil {
		return nil, err
	}

	result := &types.SwapResult{
		Status: types.TxPending,
		Quote:  quote,
	}

	if !quote.NativeIn {
		result.ApprovalTxHash, err = e.ensureAllowance(ctx, req.WalletID, from, tokenIn, quote.AmountIn)
		if err != nil {
			return nil, err
		}
	}

	var data []byte
	if quote.Route.MultiHop {
		data, err = codec.EncodeExactInput(quote.Route.Path, from, quote.AmountIn, quote.MinAmountOut)
	} else {
		data, err = codec.EncodeExactInputSingle(tokenIn, tokenOut, quote.FeeTier, from, quote.AmountIn, quote.MinAmountOut)
	}
	if err != nil {
		return nil, err
	}

	value := new(big.Int)
	if quote.NativeIn {
		value.Set(quote.AmountIn)
	}

	e.logger.WithFields(logrus.Fields{
		"chain":    e.config.Name,
		"wallet":   from.Hex(),
		"tokenIn":  quote.TokenIn.Symbol,
		"tokenOut": quote.TokenOut.Symbol,
		"amountIn": quote.AmountIn.String(),
		"minOut":   quote.MinAmountOut.String(),
		"multiHop": quote.Route.MultiHop,
	}).Info("Sending swap")

	sent, err := e.submit(ctx, &txRequest{
		kind:        "swap",
		walletID:    req.WalletID,
		from:        from,
		to:          router,
		value:       value,
		data:        data,
		fallbackGas: swapFallbackGas,
	})
	if err != nil {
		return nil, err
	}

	result.TxHash = sent.hash
	result.Explorer = e.config.TxURL(sent.hash)

	status, receipt, err := e.WaitTransactionConfirmation(ctx, sent.hash, e.receiptTimeout)
	result.Status = status
	e.metrics.observe(e.config.Name, "swap", string(status))
	if err != nil {
		return result, err
	}
	if receipt != nil {
		result.BlockNumber = receipt.BlockNumber
		result.GasUsed = receipt.GasUsed
	}
	if status == types.TxReverted {
		return result, &dexerrors.OnChainRevert{TxHash: sent.hash, Stage: "swap"}
	}

	return result, nil
}

// checkSwapBalance verifies the wallet holds the input amount and some
// native balance for gas.
func (e *evm) checkSwapBalance(ctx context.Context, from codec.Address, quote *types.Quote) error {
	native, err := e.GetTokenBalance(ctx, from.Hex(), "")
	if err != nil {
		return err
	}

	if quote.NativeIn {
		if native.Cmp(quote.AmountIn) < 0 {
			return errors.Wrapf(dexerrors.ErrInsufficientBalance, "have %s, need %s",
				codec.FormatUnits(native, 18), codec.FormatUnits(quote.AmountIn, 18))
		}
		return nil
	}

	if native.Sign() == 0 {
		return dexerrors.ErrNoGasBalance
	}

	balance, err := e.GetTokenBalance(ctx, from.Hex(), quote.TokenIn.Address)
	if err != nil {
		return err
	}
	if balance.Cmp(quote.AmountIn) < 0 {
		return errors.Wrapf(dexerrors.ErrInsufficientBalance, "have %s %s, need %s",
			codec.FormatUnits(balance, quote.TokenIn.Decimals), quote.TokenIn.Symbol,
			codec.FormatUnits(quote.AmountIn, quote.TokenIn.Decimals))
	}
	return nil
}

// guardToken runs the honeypot probe on an output token that is not in the
// registry table. Only a honeypot verdict blocks the swap.
func (e *evm) guardToken(ctx context.Context, quote *types.Quote) error {
	if e.honeypot == nil || quote.NativeOut || e.registry.IsListed(quote.TokenOut.Address) {
		return nil
	}

	probe := e.honeypot.Probe(ctx, quote.TokenOut.Address)
	e.logger.WithFields(logrus.Fields{
		"chain":   e.config.Name,
		"token":   quote.TokenOut.Address,
		"verdict": probe.Verdict,
	}).Info("Safety guard probe")

	if probe.Verdict == types.VerdictHoneypot {
		return &dexerrors.HoneypotDetected{Token: quote.TokenOut.Address, Reason: probe.Reason}
	}
	return nil
}
