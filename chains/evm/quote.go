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

const (
	bpsDenominator = 10_000
	maxFeeTier     = 1<<24 - 1
)

var errZeroQuote = errors.New("quoter returned zero output")

// QuoteExactInputSingle quotes raw amounts against the single pool of
// tokenIn/tokenOut at fee through QuoterV2.
//
// Parameters:
// - ctx: the context for managing the request.
// - tokenIn: the input token address.
// - tokenOut: the output token address.
// - amountIn: the raw input amount.
// - fee: the pool fee tier.
//
// Returns:
// - *big.Int: the raw output amount.
// - error: the node's error when the quote reverts, or a transport error.
func (e *evm) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int, fee uint32) (*big.Int, error) {
	in, err := codec.ParseAddress(tokenIn)
	if err != nil {
		return nil, err
	}
	out, err := codec.ParseAddress(tokenOut)
	if err != nil {
		return nil, err
	}

	amountOut, _, err := e.quoteSingle(ctx, in, out, amountIn, fee)
	return amountOut, err
}

// Quote prices an exact-input swap. The direct pool at the requested fee
// tier is tried first; when it fails and neither token is WETH, the route
// tokenIn -> WETH -> tokenOut at the same tier is tried.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the quote request.
//
// Returns:
// - *types.Quote: the quote with the route it was found on.
// - error: *errors.NoLiquidity when no route answers, ErrSlippageTooHigh,
// encoding errors for bad input, or transport errors.
func (e *evm) Quote(ctx context.Context, req *types.QuoteRequest) (*types.Quote, error) {
	if req == nil {
		return nil, errors.New("quote request is nil")
	}
	if !e.config.SupportsSwaps() {
		return nil, errors.Wrapf(dexerrors.ErrSwapNotSupported, "%s", e.config.Name)
	}

	slippage := req.Slippage()
	if slippage > types.MaxSlippageBps {
		return nil, errors.Wrapf(dexerrors.ErrSlippageTooHigh, "%d bps exceeds %d bps", slippage, types.MaxSlippageBps)
	}

	tokenIn, nativeIn, err := e.registry.ResolveForSwap(ctx, e, req.TokenIn, req.TokenInDecimals)
	if err != nil {
		return nil, err
	}
	tokenOut, nativeOut, err := e.registry.ResolveForSwap(ctx, e, req.TokenOut, req.TokenOutDecimals)
	if err != nil {
		return nil, err
	}

	in, err := codec.ParseAddress(tokenIn.Address)
	if err != nil {
		return nil, err
	}
	out, err := codec.ParseAddress(tokenOut.Address)
	if err != nil {
		return nil, err
	}

	amountIn, err := codec.ParseUnits(req.Amount, tokenIn.Decimals)
	if err != nil {
		return nil, err
	}
	if amountIn.Sign() == 0 {
		return nil, dexerrors.Encoding("amount", req.Amount, "must be greater than zero")
	}

	fee := e.feeTier(req.FeeTier)
	if fee > maxFeeTier {
		return nil, dexerrors.Encoding("fee_tier", "", "does not fit in uint24")
	}

	quote := &types.Quote{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		NativeIn:    nativeIn,
		NativeOut:   nativeOut,
		AmountIn:    amountIn,
		SlippageBps: slippage,
		FeeTier:     fee,
		Route: types.Route{
			Tokens: []string{in.Hex(), out.Hex()},
			Fees:   []uint32{fee},
		},
	}

	amountOut, gas, err := e.quoteSingle(ctx, in, out, amountIn, fee)
	if err != nil {
		weth, ok := e.registry.WETH()
		if !ok {
			return nil, noLiquidity(tokenIn, tokenOut, fee, false, err)
		}
		wethAddress, parseErr := codec.ParseAddress(weth.Address)
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "invalid WETH address")
		}
		if in == wethAddress || out == wethAddress {
			return nil, noLiquidity(tokenIn, tokenOut, fee, false, err)
		}

		e.logger.WithFields(logrus.Fields{
			"chain":    e.config.Name,
			"tokenIn":  tokenIn.Symbol,
			"tokenOut": tokenOut.Symbol,
			"fee":      fee,
		}).WithError(err).Debug("Single-hop quote failed, trying multi-hop through WETH")

		path, err := codec.BuildPath([]codec.Address{in, wethAddress, out}, []uint32{fee, fee})
		if err != nil {
			return nil, err
		}
		amountOut, gas, err = e.quotePath(ctx, path, amountIn)
		if err != nil {
			return nil, noLiquidity(tokenIn, tokenOut, fee, true, err)
		}

		quote.Route = types.Route{
			Tokens:   []string{in.Hex(), wethAddress.Hex(), out.Hex()},
			Fees:     []uint32{fee, fee},
			MultiHop: true,
			Path:     path,
		}
	}

	quote.AmountOut = amountOut
	quote.MinAmountOut = MinAmountOut(amountOut, slippage)
	quote.GasEstimate = gas

	return quote, nil
}

// MinAmountOut returns floor(amountOut * (10000 - bps) / 10000).
func MinAmountOut(amountOut *big.Int, slippageBps uint32) *big.Int {
	if slippageBps > bpsDenominator {
		slippageBps = bpsDenominator
	}
	minOut := new(big.Int).Mul(amountOut, big.NewInt(int64(bpsDenominator-slippageBps)))
	return minOut.Quo(minOut, big.NewInt(bpsDenominator))
}

// feeTier returns the requested tier or the chain's default.
func (e *evm) feeTier(requested uint32) uint32 {
	if requested != 0 {
		return requested
	}
	if e.config.DefaultFeeTier != 0 {
		return e.config.DefaultFeeTier
	}
	return types.DefaultFeeTier
}

// quoteSingle calls quoteExactInputSingle and returns amountOut and the
// quoter's gas estimate.
func (e *evm) quoteSingle(ctx context.Context, in, out codec.Address, amountIn *big.Int, fee uint32) (*big.Int, uint64, error) {
	data, err := codec.EncodeQuoteExactInputSingle(in, out, amountIn, fee)
	if err != nil {
		return nil, 0, err
	}
	return e.callQuoter(ctx, data)
}

// quotePath calls quoteExactInput with a packed multi-hop path.
func (e *evm) quotePath(ctx context.Context, path []byte, amountIn *big.Int) (*big.Int, uint64, error) {
	data, err := codec.EncodeQuoteExactInput(path, amountIn)
	if err != nil {
		return nil, 0, err
	}
	return e.callQuoter(ctx, data)
}

// callQuoter decodes the (amountOut, ..., gasEstimate) head shared by both
// QuoterV2 entry points.
func (e *evm) callQuoter(ctx context.Context, data []byte) (*big.Int, uint64, error) {
	if !e.config.SupportsSwaps() {
		return nil, 0, errors.Wrapf(dexerrors.ErrSwapNotSupported, "%s", e.config.Name)
	}

	client, err := e.getClient()
	if err != nil {
		return nil, 0, err
	}

	result, err := client.CallContract(ctx, e.config.Contracts.QuoterV2, data)
	if err != nil {
		return nil, 0, err
	}

	amountOut, err := codec.DecodeUint256Word(result, 0)
	if err != nil {
		return nil, 0, errors.Wrap(err, "unexpected quoter response")
	}
	if amountOut.Sign() == 0 {
		return nil, 0, errZeroQuote
	}

	var gas uint64
	if g, err := codec.DecodeUint256Word(result, 3); err == nil && g.IsUint64() {
		gas = g.Uint64()
	}
	return amountOut, gas, nil
}

// noLiquidity turns a failed quote into *errors.NoLiquidity. Transport
// failures are returned as they are, since they say nothing about pools.
func noLiquidity(tokenIn, tokenOut types.Token, fee uint32, multiHop bool, err error) error {
	var rpcErr *dexerrors.RpcError
	if errors.As(err, &rpcErr) && rpcErr.IsTransport() {
		return errors.Wrap(err, "failed to quote")
	}
	return &dexerrors.NoLiquidity{
		TokenIn:  tokenIn.Symbol,
		TokenOut: tokenOut.Symbol,
		FeeTier:  fee,
		MultiHop: multiHop,
		Err:      err,
	}
}
