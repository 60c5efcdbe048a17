package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/internal/ethtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var extraTokenAddress = codec.MustParseAddress("0x1111111111111111111111111111111111111111")

func TestGetTokenBalance(t *testing.T) {
	env := newTestEnv(t, readOnly())
	env.node.SetBalance(walletAddress, oneEther)
	env.usdc.SetBalance(walletAddress, big.NewInt(42_000_000))
	ctx := context.Background()

	native, err := env.chain.GetTokenBalance(ctx, walletAddress.Hex(), "")
	require.NoError(t, err)
	assert.Equal(t, oneEther, native)

	usdc, err := env.chain.GetTokenBalance(ctx, walletAddress.Hex(), usdcAddress.Hex())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42_000_000), usdc)

	_, err = env.chain.GetTokenBalance(ctx, "0x1234", "")
	var encErr *dexerrors.EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestGetPortfolio(t *testing.T) {
	env := newTestEnv(t, readOnly())
	env.node.SetBalance(walletAddress, ether(2))
	env.usdc.SetBalance(walletAddress, big.NewInt(1_500_000))
	extra := env.node.DeployERC20(extraTokenAddress, "Extra", "XTR", 18, ether(100))
	extra.SetBalance(walletAddress, ether(5))

	portfolio, err := env.chain.GetPortfolio(context.Background(), walletAddress.Hex(), []string{extraTokenAddress.Hex(), "usdc"})
	require.NoError(t, err)

	assert.Equal(t, "Ethereum Mainnet", portfolio.Network)
	assert.Equal(t, walletAddress.Hex(), portfolio.Address)
	assert.Equal(t, "ETH", portfolio.Native.Token.Symbol)
	assert.Equal(t, "2", portfolio.Native.Amount)

	require.Len(t, portfolio.Balances, 2)
	assert.Equal(t, "USDC", portfolio.Balances[0].Token.Symbol)
	assert.Equal(t, "1.5", portfolio.Balances[0].Amount)
	assert.Equal(t, extraTokenAddress.Hex(), portfolio.Balances[1].Token.Address)
	assert.Equal(t, "5", portfolio.Balances[1].Amount)
}

func TestGetPortfolioRejectsUnknownSymbol(t *testing.T) {
	env := newTestEnv(t, readOnly())

	_, err := env.chain.GetPortfolio(context.Background(), walletAddress.Hex(), []string{"NOPE"})
	assert.ErrorIs(t, err, dexerrors.ErrUnknownToken)
}

func TestTokenInfo(t *testing.T) {
	env := newTestEnv(t, readOnly())
	env.node.SetOwner(usdcAddress, DeadAddress)
	env.node.SetBalance(usdcAddress, ether(2))

	info, err := env.chain.TokenInfo(context.Background(), "USDC")
	require.NoError(t, err)

	assert.Equal(t, usdcAddress.Hex(), info.Address)
	assert.Equal(t, "USD Coin", info.Name)
	assert.Equal(t, "USDC", info.Symbol)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.True(t, info.DecimalsKnown)
	assert.Equal(t, big.NewInt(1_000_000_000_000), info.TotalSupply)
	assert.Equal(t, DeadAddress.Hex(), info.Owner)
	assert.True(t, info.OwnerRenounced)
	assert.Equal(t, ether(2), info.ContractETH)
	assert.Positive(t, info.CodeSize)
	assert.Empty(t, info.Unreadable)
	assert.Equal(t, "https://etherscan.io/address/"+usdcAddress.Hex(), info.Explorer)
}

func TestTokenInfoPartialContract(t *testing.T) {
	env := newTestEnv(t, readOnly())
	env.node.Handle(extraTokenAddress, codec.SelectorSymbol, func(codec.Address, []byte, bool) ([]byte, error) {
		return ethtest.String("ODD"), nil
	})

	info, err := env.chain.TokenInfo(context.Background(), extraTokenAddress.Hex())
	require.NoError(t, err)

	assert.Equal(t, "ODD", info.Symbol)
	assert.Equal(t, uint8(18), info.Decimals)
	assert.False(t, info.DecimalsKnown)
	assert.Equal(t, []string{"decimals", "name", "owner", "totalSupply"}, info.Unreadable)
	assert.Zero(t, info.ContractETH.Sign())
}

func TestTokenInfoWithoutCode(t *testing.T) {
	env := newTestEnv(t, readOnly())

	info, err := env.chain.TokenInfo(context.Background(), recipient.Hex())
	require.NoError(t, err)
	assert.Zero(t, info.CodeSize)
	assert.Empty(t, info.Name)

	_, err = env.chain.TokenInfo(context.Background(), "ETH")
	var encErr *dexerrors.EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestIsRenounced(t *testing.T) {
	assert.True(t, IsRenounced(codec.Address{}))
	assert.True(t, IsRenounced(DeadAddress))
	assert.False(t, IsRenounced(walletAddress))
}

func txHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func transferLog(env *testEnv, from, to codec.Address, value int64, block uint64, n int) {
	env.node.AddLog(usdcAddress, []string{codec.TransferEventTopic, from.Topic(), to.Topic()},
		ethtest.Word(big.NewInt(value)), block, txHash(n))
}

func TestTransferHistory(t *testing.T) {
	env := newTestEnv(t, readOnly())
	head := env.node.Head

	transferLog(env, recipient, walletAddress, 300, head-10, 1)
	transferLog(env, walletAddress, recipient, 100, head-4000, 2)
	transferLog(env, walletAddress, walletAddress, 7, head-10, 3)
	// outside the lookback
	transferLog(env, walletAddress, recipient, 999, head-6000, 4)
	// unrelated
	transferLog(env, recipient, extraTokenAddress, 5, head-1, 5)
	// malformed: no indexed recipient
	env.node.AddLog(usdcAddress, []string{codec.TransferEventTopic, walletAddress.Topic()},
		ethtest.Word(big.NewInt(1)), head-2, txHash(6))

	events, err := env.chain.TransferHistory(context.Background(), walletAddress.Hex(), "USDC", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, big.NewInt(100), events[0].Value)
	assert.False(t, events[0].Incoming)
	assert.Equal(t, recipient.Hex(), events[0].To)
	assert.Equal(t, head-4000, events[0].BlockNumber)

	assert.Equal(t, big.NewInt(300), events[1].Value)
	assert.True(t, events[1].Incoming)
	assert.Equal(t, recipient.Hex(), events[1].From)

	assert.Equal(t, big.NewInt(7), events[2].Value)
	assert.True(t, events[2].Incoming)
	assert.Equal(t, txHash(3), events[2].TxHash)

	for _, event := range events {
		assert.Equal(t, "USDC", event.Token)
	}

	ranges := env.node.LogRanges()
	require.Len(t, ranges, 20)
	lowest, highest := ranges[0][0], ranges[0][1]
	for _, r := range ranges {
		assert.LessOrEqual(t, r[1]-r[0]+1, uint64(500))
		lowest = min(lowest, r[0])
		highest = max(highest, r[1])
	}
	assert.Equal(t, uint64(19_995_001), lowest)
	assert.Equal(t, head, highest)
}

func TestTransferHistoryShortLookback(t *testing.T) {
	env := newTestEnv(t, readOnly())
	transferLog(env, recipient, walletAddress, 1, env.node.Head-50, 1)

	events, err := env.chain.TransferHistory(context.Background(), walletAddress.Hex(), usdcAddress.Hex(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, env.node.LogRanges(), 2)
}

func TestTransferHistoryRejectsNativeToken(t *testing.T) {
	env := newTestEnv(t, readOnly())

	_, err := env.chain.TransferHistory(context.Background(), walletAddress.Hex(), "eth", 0)
	var encErr *dexerrors.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.True(t, strings.Contains(encErr.Reason, "native"))
	assert.Empty(t, env.node.LogRanges())
}
