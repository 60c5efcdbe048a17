package evm

import (
	"context"
	"math/big"

	"github.com/ClipFinance/dex-engine/chains/evm/rpcclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// nativeTransferGas is the fixed gas limit of a plain value transfer.
	nativeTransferGas = uint64(21_000)
	// tokenTransferFallbackGas is used when an ERC-20 transfer cannot be estimated.
	tokenTransferFallbackGas = uint64(65_000)
	// swapFallbackGas is used when a router call cannot be estimated.
	swapFallbackGas = uint64(300_000)
	// gasBufferPercent is applied on top of eth_estimateGas.
	gasBufferPercent = 120
)

// defaultPriorityFee is the 1.5 gwei tip used when the chain config has none.
var defaultPriorityFee = big.NewInt(1_500_000_000)

// GasPriceData represents the gas price data for EIP-1559 transactions.
type GasPriceData struct {
	BaseFee              *big.Int // The base fee of the latest block.
	MaxFeePerGas         *big.Int // The maximum fee per gas.
	MaxPriorityFeePerGas *big.Int // The maximum priority fee per gas.
}

// EstimateGas estimates the gas required for a transaction.
//
// Parameters:
// - ctx: the context for managing the request.
// - from: the sender address of the transaction.
// - to: the recipient address of the transaction.
// - value: the amount of Ether to send with the transaction.
// - data: the input data for the transaction.
//
// Returns:
// - uint64: the node's estimate, without buffer.
// - error: an error if the client is not initialized or if the gas estimation fails.
func (e *evm) EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error) {
	client, err := e.getClient()
	if err != nil {
		return 0, err
	}

	return client.EstimateGas(ctx, rpcclient.CallMsg{
		From:  from,
		To:    to,
		Value: value,
		Data:  data,
	})
}

// estimateGasLimit returns the estimate plus a 20% buffer. When the node
// cannot estimate and fallback is non-zero, fallback is used as is.
//
// Parameters:
// - ctx: the context for managing the request.
// - from: the sender address.
// - to: the recipient or contract address.
// - value: the value sent along.
// - data: the calldata.
// - fallback: the gas limit to use when estimation fails; zero propagates the error.
//
// Returns:
// - uint64: the gas limit.
// - error: an error if estimation fails and no fallback is given.
func (e *evm) estimateGasLimit(ctx context.Context, from, to string, value *big.Int, data []byte, fallback uint64) (uint64, error) {
	estimate, err := e.EstimateGas(ctx, from, to, value, data)
	if err != nil {
		if fallback == 0 {
			e.logger.WithField("chain", e.config.Name).WithError(err).Warn("Failed to estimate gas")
			return 0, errors.Wrap(err, "failed to estimate gas")
		}

		e.logger.WithFields(logrus.Fields{
			"chain":    e.config.Name,
			"to":       to,
			"fallback": fallback,
		}).WithError(err).Warn("Gas estimation failed, using fallback limit")
		return fallback, nil
	}

	return estimate * gasBufferPercent / 100, nil
}

// getEIP1559GasPrice retrieves the gas price data for EIP-1559 transactions:
// maxFee = 2*baseFee + priority. The priority fee is the configured fixed
// tip unless the chain opts into eth_maxPriorityFeePerGas.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - *GasPriceData: the gas price data for EIP-1559 transactions.
// - error: an error if the client is not initialized or if there is an issue retrieving the base fee.
func (e *evm) getEIP1559GasPrice(ctx context.Context) (*GasPriceData, error) {
	client, err := e.getClient()
	if err != nil {
		return nil, err
	}

	baseFee, err := client.BaseFee(ctx)
	if err != nil {
		e.logger.WithField("chain", e.config.Name).WithError(err).Warn("Failed to get base fee")
		return nil, errors.Wrap(err, "failed to get base fee")
	}

	priorityFee := defaultPriorityFee
	if e.config.PriorityFee != nil && e.config.PriorityFee.Sign() > 0 {
		priorityFee = e.config.PriorityFee
	}

	if e.config.DynamicPriorityFee {
		suggestedTip, err := client.MaxPriorityFeePerGas(ctx)
		switch {
		case err != nil:
			e.logger.WithField("chain", e.config.Name).WithError(err).Warn("Failed to get suggested priority fee, using fixed fee")
		case suggestedTip.Sign() == 0:
			e.logger.WithField("chain", e.config.Name).Debug("Suggested priority fee is zero, using fixed fee")
		default:
			priorityFee = suggestedTip
		}
	}

	maxFeePerGas := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFeePerGas.Add(maxFeePerGas, priorityFee)

	return &GasPriceData{
		BaseFee:              baseFee,
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: new(big.Int).Set(priorityFee),
	}, nil
}
