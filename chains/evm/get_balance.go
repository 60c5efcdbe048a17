package evm

import (
	"context"
	"math/big"
	"strings"

	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// portfolioConcurrency bounds the parallel balanceOf calls of a portfolio.
const portfolioConcurrency = 8

// GetTokenBalance gets token balance for the given address.
// For native token balances, use tokenAddress as empty string or the
// native placeholder address.
//
// Parameters:
// - ctx: the context for managing the request
// - address: the address to check balance for
// - tokenAddress: the token contract address
//
// Returns:
// - *big.Int: the token balance
// - error: an error if the balance check fails
func (e *evm) GetTokenBalance(ctx context.Context, address string, tokenAddress string) (*big.Int, error) {
	client, err := e.getClient()
	if err != nil {
		return nil, err
	}

	holder, err := codec.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	// Check if requesting native token balance
	if tokenAddress == "" || strings.EqualFold(tokenAddress, types.NativeTokenAddress) {
		balance, err := client.GetBalance(ctx, holder.Hex())
		if err != nil {
			return nil, errors.Wrap(err, "failed to get native token balance")
		}
		return balance, nil
	}

	token, err := codec.ParseAddress(tokenAddress)
	if err != nil {
		return nil, err
	}
	return e.tokenBalance(ctx, token, holder)
}

// tokenBalance calls balanceOf(holder) on token.
func (e *evm) tokenBalance(ctx context.Context, token, holder codec.Address) (*big.Int, error) {
	client, err := e.getClient()
	if err != nil {
		return nil, err
	}

	result, err := client.CallContract(ctx, token.Hex(), codec.EncodeBalanceOf(holder))
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}

	if len(result) == 0 {
		return nil, errors.New("empty result from balanceOf call")
	}

	return codec.DecodeUint256Word(result, 0)
}

// GetPortfolio returns the native balance of address and every non-zero
// balance among the registry's tokens and extraTokens. Token balances are
// read concurrently; tokens whose balanceOf fails are skipped.
//
// Parameters:
// - ctx: the context for managing the request.
// - address: the wallet address.
// - extraTokens: additional token addresses or symbols to include.
//
// Returns:
// - *types.Portfolio: the balances, registry tokens first, sorted by symbol.
// - error: an error if the address is invalid or the native balance cannot be read.
func (e *evm) GetPortfolio(ctx context.Context, address string, extraTokens []string) (*types.Portfolio, error) {
	holder, err := codec.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	native, err := e.GetTokenBalance(ctx, holder.Hex(), "")
	if err != nil {
		return nil, err
	}

	nativeToken := e.registry.Native()
	portfolio := &types.Portfolio{
		Network: e.config.Name,
		Address: holder.Hex(),
		Native: types.TokenBalance{
			Token:  nativeToken,
			Raw:    native,
			Amount: codec.FormatUnits(native, nativeToken.Decimals),
		},
	}

	candidates := e.registry.Tokens()
	seen := map[string]bool{}
	for _, t := range candidates {
		seen[strings.ToLower(t.Address)] = true
	}
	for _, extra := range extraTokens {
		token, err := e.registry.ResolveOnChain(ctx, e, extra, nil)
		if err != nil {
			return nil, err
		}
		if token.Native || seen[strings.ToLower(token.Address)] {
			continue
		}
		seen[strings.ToLower(token.Address)] = true
		candidates = append(candidates, token)
	}

	balances := make([]*big.Int, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(portfolioConcurrency)
	for i, token := range candidates {
		i, token := i, token
		g.Go(func() error {
			tokenAddress, err := codec.ParseAddress(token.Address)
			if err != nil {
				return nil
			}
			balance, err := e.tokenBalance(gctx, tokenAddress, holder)
			if err != nil {
				e.logger.WithFields(logrus.Fields{
					"chain": e.config.Name,
					"token": token.Symbol,
				}).WithError(err).Debug("Skipping token balance")
				return nil
			}
			balances[i] = balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, token := range candidates {
		if balances[i] == nil || balances[i].Sign() == 0 {
			continue
		}
		portfolio.Balances = append(portfolio.Balances, types.TokenBalance{
			Token:  token,
			Raw:    balances[i],
			Amount: codec.FormatUnits(balances[i], token.Decimals),
		})
	}

	return portfolio, nil
}
