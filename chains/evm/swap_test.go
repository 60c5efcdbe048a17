package evm

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/ClipFinance/dex-engine/internal/ethtest"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scamAddress = codec.MustParseAddress("0x5555555555555555555555555555555555555555")

func selector(tx *ethtypes.Transaction) [4]byte {
	var sel [4]byte
	copy(sel[:], tx.Data())
	return sel
}

func sentTo(tx *ethtypes.Transaction, address codec.Address) bool {
	return tx.To() != nil && codec.Address(*tx.To()) == address
}

func usdcToWETH(env *testEnv) {
	env.quoter.SetPool(usdcAddress, wethAddress, 3000, 1_000_000_000, 3)
	env.node.SetBalance(walletAddress, oneEther)
	env.usdc.SetBalance(walletAddress, big.NewInt(10_000_000_000))
}

func TestSwapApprovesOnce(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	ctx := context.Background()
	req := &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	}

	first, err := env.chain.Swap(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.TxConfirmed, first.Status)
	assert.NotEmpty(t, first.ApprovalTxHash)
	assert.Equal(t, codec.MaxUint256, env.usdc.Allowance(walletAddress, routerAddress))

	second, err := env.chain.Swap(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, second.ApprovalTxHash)
	assert.Equal(t, 1, env.usdc.Approvals())

	sent := env.node.Sent()
	require.Len(t, sent, 3)
	assert.True(t, sentTo(sent[0].Tx, usdcAddress))
	assert.Equal(t, codec.SelectorApprove, selector(sent[0].Tx))
	for i, s := range sent {
		assert.Equal(t, uint64(i), s.Tx.Nonce())
	}

	swap := sent[1].Tx
	assert.True(t, sentTo(swap, routerAddress))
	assert.Equal(t, codec.SelectorExactInputSingle, selector(swap))
	assert.Zero(t, swap.Value().Sign())
	assert.Equal(t, uint64(120_000), swap.Gas())

	assert.Equal(t, first.TxHash, swap.Hash().Hex())
	assert.Equal(t, "https://etherscan.io/tx/"+first.TxHash, first.Explorer)
	assert.Equal(t, 1.0, env.txCount("approval", "confirmed"))
	assert.Equal(t, 2.0, env.txCount("swap", "confirmed"))
}

func TestSwapNativeInputSendsValue(t *testing.T) {
	env := newTestEnv(t)
	env.quoter.SetPool(wethAddress, usdcAddress, 3000, 3_000_000_000, 1_000_000_000_000_000_000)
	env.node.SetBalance(walletAddress, ether(2))

	result, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "ETH", TokenOut: "USDC", Amount: "1"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.ApprovalTxHash)
	assert.True(t, result.Quote.NativeIn)

	sent := env.node.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, oneEther, sent[0].Tx.Value())
	assert.Equal(t, 0, env.weth.Approvals())
}

func TestSwapMultiHopUsesExactInput(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	env.quoter.SetPool(wethAddress, daiAddress, 3000, 3000, 1)
	env.usdc.SetAllowance(walletAddress, routerAddress, codec.MaxUint256)

	result, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "DAI", Amount: "3000"},
	})
	require.NoError(t, err)
	assert.True(t, result.Quote.Route.MultiHop)

	sent := env.node.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, codec.SelectorExactInput, selector(sent[0].Tx))
}

func TestSwapGasFallback(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	env.usdc.SetAllowance(walletAddress, routerAddress, codec.MaxUint256)
	env.node.EstimateGasErr = &ethtest.Error{Code: -32000, Message: "execution reverted"}

	_, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(300_000), env.node.Sent()[0].Tx.Gas())
}

func TestSwapApprovalNeedsEstimate(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	env.node.EstimateGasErr = &ethtest.Error{Code: -32000, Message: "execution reverted"}

	_, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	require.Error(t, err)
	assert.Empty(t, env.node.Sent())
}

func TestSwapApprovalReverted(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	env.node.Mine = func(*ethtypes.Transaction) (bool, uint64) { return true, 0 }

	result, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	assert.Nil(t, result)

	var revert *dexerrors.OnChainRevert
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "approval", revert.Stage)
	assert.Len(t, env.node.Sent(), 1)
}

func TestSwapApprovalPending(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	env.node.Mine = func(*ethtypes.Transaction) (bool, uint64) { return false, 0 }

	_, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	assert.ErrorIs(t, err, dexerrors.ErrApprovalPending)
	assert.Len(t, env.node.Sent(), 1)
}

func TestSwapReverted(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	env.node.Mine = func(tx *ethtypes.Transaction) (bool, uint64) {
		if sentTo(tx, routerAddress) {
			return true, 0
		}
		return true, 1
	}

	result, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	require.NotNil(t, result)
	assert.Equal(t, types.TxReverted, result.Status)
	assert.NotEmpty(t, result.ApprovalTxHash)

	var revert *dexerrors.OnChainRevert
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "swap", revert.Stage)
	assert.Equal(t, result.TxHash, revert.TxHash)
	assert.Equal(t, 1.0, env.txCount("swap", "reverted"))
}

func TestSwapPending(t *testing.T) {
	env := newTestEnv(t)
	usdcToWETH(env)
	env.usdc.SetAllowance(walletAddress, routerAddress, codec.MaxUint256)
	env.node.Mine = func(*ethtypes.Transaction) (bool, uint64) { return false, 0 }

	result, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.TxPending, result.Status)
	assert.NotEmpty(t, result.TxHash)
}

func TestSwapBalanceChecks(t *testing.T) {
	env := newTestEnv(t)
	env.quoter.SetPool(usdcAddress, wethAddress, 3000, 1_000_000_000, 3)
	env.quoter.SetPool(wethAddress, usdcAddress, 3000, 3_000_000_000, 1_000_000_000_000_000_000)
	ctx := context.Background()

	_, err := env.chain.Swap(ctx, &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	assert.ErrorIs(t, err, dexerrors.ErrNoGasBalance)

	env.node.SetBalance(walletAddress, oneEther)
	_, err = env.chain.Swap(ctx, &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "USDC", TokenOut: "WETH", Amount: "3000"},
	})
	assert.ErrorIs(t, err, dexerrors.ErrInsufficientBalance)

	_, err = env.chain.Swap(ctx, &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "ETH", TokenOut: "USDC", Amount: "2"},
	})
	assert.ErrorIs(t, err, dexerrors.ErrInsufficientBalance)

	assert.Empty(t, env.node.Sent())
}

func TestSwapSafetyGuardBlocksHoneypot(t *testing.T) {
	env := newTestEnv(t, withConfig(func(c *types.ChainConfig) { c.SafetyGuard = true }))
	env.node.SetBalance(walletAddress, oneEther)
	env.quoter.SetPool(wethAddress, scamAddress, 3000, 1000, 1)
	env.quoter.SetRevertingPool(scamAddress, wethAddress, 3000)

	_, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "ETH", TokenOut: scamAddress.Hex(), Amount: "0.1"},
	})

	var honeypot *dexerrors.HoneypotDetected
	require.ErrorAs(t, err, &honeypot)
	assert.Equal(t, scamAddress.Hex(), honeypot.Token)
	assert.Empty(t, env.node.Sent())
}

func TestSwapSafetyGuardAllowsSellableToken(t *testing.T) {
	env := newTestEnv(t, withConfig(func(c *types.ChainConfig) { c.SafetyGuard = true }))
	env.node.SetBalance(walletAddress, oneEther)
	env.quoter.SetPool(wethAddress, scamAddress, 3000, 1000, 1)
	env.quoter.SetPool(scamAddress, wethAddress, 3000, 1, 1250)

	result, err := env.chain.Swap(context.Background(), &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "ETH", TokenOut: scamAddress.Hex(), Amount: "0.1"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.TxConfirmed, result.Status)
}

type recordingChecker struct {
	mu     sync.Mutex
	probed []string
}

func (r *recordingChecker) Probe(_ context.Context, token string) *types.HoneypotProbe {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probed = append(r.probed, token)
	return &types.HoneypotProbe{Token: token, Verdict: types.VerdictNormal}
}

func TestSwapSafetyGuardSkipsListedTokens(t *testing.T) {
	checker := &recordingChecker{}
	env := newTestEnv(t, withOptions(WithHoneypotChecker(checker)))
	env.node.SetBalance(walletAddress, ether(2))
	env.quoter.SetPool(wethAddress, usdcAddress, 3000, 3_000_000_000, 1_000_000_000_000_000_000)
	env.quoter.SetPool(wethAddress, scamAddress, 3000, 1000, 1)
	ctx := context.Background()

	_, err := env.chain.Swap(ctx, &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "ETH", TokenOut: "USDC", Amount: "0.5"},
	})
	require.NoError(t, err)

	_, err = env.chain.Swap(ctx, &types.SwapRequest{
		WalletID:     testWallet,
		QuoteRequest: types.QuoteRequest{TokenIn: "ETH", TokenOut: scamAddress.Hex(), Amount: "0.5"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{scamAddress.Hex()}, checker.probed)
}
