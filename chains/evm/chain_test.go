package evm

import (
	"context"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ClipFinance/dex-engine/chainmanager"
	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/ClipFinance/dex-engine/internal/ethtest"
	"github.com/ClipFinance/dex-engine/vault"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	testWallet = "main"
	testKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

var (
	walletAddress = codec.MustParseAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	recipient     = codec.MustParseAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	quoterAddress = codec.MustParseAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	routerAddress = codec.MustParseAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	wethAddress   = codec.MustParseAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcAddress   = codec.MustParseAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	daiAddress    = codec.MustParseAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	oneEther = big.NewInt(1_000_000_000_000_000_000)
	gwei     = big.NewInt(1_000_000_000)
)

func ether(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), oneEther) }

// testEnv is a chain wired to a fake node with mainnet's token table,
// a QuoterV2, a SwapRouter02 and USDC, DAI and WETH contracts.
type testEnv struct {
	node     *ethtest.Node
	quoter   *ethtest.Quoter
	usdc     *ethtest.ERC20
	dai      *ethtest.ERC20
	weth     *ethtest.ERC20
	vault    *vault.Memory
	config   *types.ChainConfig
	registry *prometheus.Registry
	chain    types.Chain
}

type envOption func(*envSettings)

type envSettings struct {
	configure func(*types.ChainConfig)
	readOnly  bool
	opts      []Option
}

func withConfig(fn func(*types.ChainConfig)) envOption {
	return func(s *envSettings) { s.configure = fn }
}

func readOnly() envOption {
	return func(s *envSettings) { s.readOnly = true }
}

func withOptions(opts ...Option) envOption {
	return func(s *envSettings) { s.opts = append(s.opts, opts...) }
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestEnv(t *testing.T, envOpts ...envOption) *testEnv {
	t.Helper()

	var settings envSettings
	for _, o := range envOpts {
		o(&settings)
	}

	node := ethtest.NewNode(t)
	env := &testEnv{
		node:     node,
		quoter:   node.DeployQuoter(quoterAddress),
		usdc:     node.DeployERC20(usdcAddress, "USD Coin", "USDC", 6, big.NewInt(1_000_000_000_000)),
		dai:      node.DeployERC20(daiAddress, "Dai Stablecoin", "DAI", 18, ether(1_000_000)),
		weth:     node.DeployERC20(wethAddress, "Wrapped Ether", "WETH", 18, ether(1_000_000)),
		vault:    vault.NewMemory(),
		registry: prometheus.NewRegistry(),
	}
	node.DeployRouter(routerAddress, env.quoter)

	key, err := codec.DecodeHex(testKeyHex)
	require.NoError(t, err)
	require.NoError(t, env.vault.StoreWallet(context.Background(), testWallet, walletAddress.Hex(), key))

	env.config = chainmanager.DefaultNetworks()[chainmanager.ChainIDEthereum]
	env.config.RpcUrls = []string{node.URL()}
	if settings.configure != nil {
		settings.configure(env.config)
	}

	opts := []Option{
		WithRegisterer(env.registry),
		WithPolling(5*time.Millisecond, 200*time.Millisecond, 200*time.Millisecond),
	}
	if !settings.readOnly {
		opts = append(opts, WithVault(env.vault))
	}
	opts = append(opts, settings.opts...)

	env.chain, err = NewEvmChain(context.Background(), env.config, testLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(env.chain.Close)

	return env
}

func (env *testEnv) txCount(kind, status string) float64 {
	return testutil.ToFloat64(newMetrics(env.registry).transactions.WithLabelValues(env.config.Name, kind, status))
}

// failingTransport fails every request once fail is set.
type failingTransport struct {
	fail atomic.Bool
}

func (f *failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if f.fail.Load() {
		return nil, errors.New("connection refused")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestNewEvmChainChecksChainID(t *testing.T) {
	node := ethtest.NewNode(t)
	config := chainmanager.DefaultNetworks()[chainmanager.ChainIDBase]
	config.RpcUrls = []string{node.URL()}

	_, err := NewEvmChain(context.Background(), config, testLogger())
	assert.ErrorIs(t, err, dexerrors.ErrChainMismatch)

	_, err = NewEvmChain(context.Background(), &types.ChainConfig{ChainID: 1}, testLogger())
	assert.ErrorIs(t, err, dexerrors.ErrInvalidConfig)
}

func TestTransferNative(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, oneEther)

	result, err := env.chain.Transfer(context.Background(), &types.TransferRequest{
		WalletID: testWallet,
		To:       recipient.Hex(),
		Amount:   "0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, types.TxConfirmed, result.Status)
	assert.Equal(t, "ETH", result.Token.Symbol)
	assert.Equal(t, "0.1", result.Amount)
	assert.Equal(t, uint64(0), result.Nonce)
	assert.Equal(t, "https://etherscan.io/tx/"+result.TxHash, result.Explorer)
	assert.Equal(t, big.NewInt(100_000_000_000_000_000), env.node.Balance(recipient))

	sent := env.node.Sent()
	require.Len(t, sent, 1)
	tx := sent[0].Tx
	assert.Equal(t, uint8(2), tx.Type())
	assert.Equal(t, uint64(21_000), tx.Gas())
	assert.Equal(t, big.NewInt(1_500_000_000), tx.GasTipCap())
	assert.Equal(t, big.NewInt(21_500_000_000), tx.GasFeeCap())
	assert.Equal(t, walletAddress.Hex(), sent[0].From.Hex())
	assert.Equal(t, 0, env.node.Calls("eth_estimateGas"))

	assert.Equal(t, 1.0, env.txCount("transfer", "confirmed"))
}

func TestTransferToken(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, oneEther)
	env.usdc.SetBalance(walletAddress, big.NewInt(100_000_000))

	result, err := env.chain.Transfer(context.Background(), &types.TransferRequest{
		WalletID: testWallet,
		To:       recipient.Hex(),
		Token:    "usdc",
		Amount:   "25.5",
	})
	require.NoError(t, err)

	assert.Equal(t, types.TxConfirmed, result.Status)
	assert.Equal(t, big.NewInt(25_500_000), env.usdc.Balance(recipient))
	assert.Equal(t, big.NewInt(74_500_000), env.usdc.Balance(walletAddress))

	tx := env.node.Sent()[0].Tx
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, usdcAddress.Hex(), tx.To().Hex())
	assert.Zero(t, tx.Value().Sign())
}

func TestTransferUnlistedTokenDecimals(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, oneEther)
	six := codec.MustParseAddress("0x7777777777777777777777777777777777777777")
	token := env.node.DeployERC20(six, "Six Decimals", "SIX", 6, big.NewInt(1_000_000_000_000))
	token.SetBalance(walletAddress, big.NewInt(10_000_000))

	result, err := env.chain.Transfer(context.Background(), &types.TransferRequest{
		WalletID: testWallet,
		To:       recipient.Hex(),
		Token:    six.Hex(),
		Amount:   "2.5",
	})
	require.NoError(t, err)

	assert.Equal(t, "SIX", result.Token.Symbol)
	assert.Equal(t, big.NewInt(2_500_000), token.Balance(recipient))
}

func TestTransferTokenGasFallback(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, oneEther)
	env.usdc.SetBalance(walletAddress, big.NewInt(100_000_000))
	env.node.EstimateGasErr = &ethtest.Error{Code: -32000, Message: "gas required exceeds allowance"}

	_, err := env.chain.Transfer(context.Background(), &types.TransferRequest{
		WalletID: testWallet,
		To:       recipient.Hex(),
		Token:    usdcAddress.Hex(),
		Amount:   "1",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(65_000), env.node.Sent()[0].Tx.Gas())
}

func TestTransferBalanceChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.chain.Transfer(ctx, &types.TransferRequest{WalletID: testWallet, To: recipient.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, dexerrors.ErrInsufficientBalance)

	env.usdc.SetBalance(walletAddress, big.NewInt(5_000_000))
	_, err = env.chain.Transfer(ctx, &types.TransferRequest{WalletID: testWallet, To: recipient.Hex(), Token: "USDC", Amount: "5"})
	assert.ErrorIs(t, err, dexerrors.ErrNoGasBalance)

	env.node.SetBalance(walletAddress, oneEther)
	_, err = env.chain.Transfer(ctx, &types.TransferRequest{WalletID: testWallet, To: recipient.Hex(), Token: "USDC", Amount: "5.000001"})
	assert.ErrorIs(t, err, dexerrors.ErrInsufficientBalance)

	assert.Empty(t, env.node.Sent())
}

func TestTransferRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, oneEther)
	ctx := context.Background()

	var encErr *dexerrors.EncodingError

	_, err := env.chain.Transfer(ctx, &types.TransferRequest{WalletID: testWallet, To: "0x1234", Amount: "1"})
	assert.ErrorAs(t, err, &encErr)

	_, err = env.chain.Transfer(ctx, &types.TransferRequest{WalletID: testWallet, To: recipient.Hex(), Amount: "0"})
	assert.ErrorAs(t, err, &encErr)

	_, err = env.chain.Transfer(ctx, &types.TransferRequest{WalletID: testWallet, To: recipient.Hex(), Token: "NOPE", Amount: "1"})
	assert.ErrorIs(t, err, dexerrors.ErrUnknownToken)

	_, err = env.chain.Transfer(ctx, &types.TransferRequest{WalletID: "other", To: recipient.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, dexerrors.ErrWalletNotFound)
}

func TestTransferReverted(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, oneEther)
	env.node.Mine = func(*ethtypes.Transaction) (bool, uint64) { return true, 0 }

	result, err := env.chain.Transfer(context.Background(), &types.TransferRequest{
		WalletID: testWallet,
		To:       recipient.Hex(),
		Amount:   "0.5",
	})
	require.Error(t, err)
	require.NotNil(t, result)

	var revert *dexerrors.OnChainRevert
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "transfer", revert.Stage)
	assert.Equal(t, result.TxHash, revert.TxHash)
	assert.Equal(t, types.TxReverted, result.Status)
	assert.Equal(t, 1.0, env.txCount("transfer", "reverted"))
}

func TestTransferPending(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, oneEther)
	env.node.Mine = func(*ethtypes.Transaction) (bool, uint64) { return false, 0 }

	result, err := env.chain.Transfer(context.Background(), &types.TransferRequest{
		WalletID: testWallet,
		To:       recipient.Hex(),
		Amount:   "0.5",
	})
	require.NoError(t, err)
	assert.Equal(t, types.TxPending, result.Status)
	assert.NotEmpty(t, result.TxHash)
	assert.Zero(t, result.BlockNumber)
}

func TestReadOnlyChainCannotSend(t *testing.T) {
	env := newTestEnv(t, readOnly())

	_, err := env.chain.Transfer(context.Background(), &types.TransferRequest{WalletID: testWallet, To: recipient.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, dexerrors.ErrNotImplemented)

	_, err = env.chain.Swap(context.Background(), &types.SwapRequest{WalletID: testWallet})
	assert.ErrorIs(t, err, dexerrors.ErrNotImplemented)
}

func TestConcurrentTransfersGetConsecutiveNonces(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetBalance(walletAddress, ether(10))
	env.node.SetNonce(walletAddress, 7)

	const n = 5
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := env.chain.Transfer(context.Background(), &types.TransferRequest{
				WalletID: testWallet,
				To:       recipient.Hex(),
				Amount:   "0.01",
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	sent := env.node.Sent()
	require.Len(t, sent, n)
	for i, s := range sent {
		assert.Equal(t, uint64(7+i), s.Tx.Nonce())
	}
}

func TestDynamicPriorityFee(t *testing.T) {
	env := newTestEnv(t, withConfig(func(c *types.ChainConfig) { c.DynamicPriorityFee = true }))
	env.node.SetBalance(walletAddress, oneEther)
	ctx := context.Background()
	req := &types.TransferRequest{WalletID: testWallet, To: recipient.Hex(), Amount: "0.01"}

	_, err := env.chain.Transfer(ctx, req)
	require.NoError(t, err)

	env.node.PriorityFeeErr = &ethtest.Error{Code: -32601, Message: "method not found"}
	_, err = env.chain.Transfer(ctx, req)
	require.NoError(t, err)

	sent := env.node.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(2), gwei), sent[0].Tx.GasTipCap())
	assert.Equal(t, big.NewInt(22_000_000_000), sent[0].Tx.GasFeeCap())
	assert.Equal(t, big.NewInt(1_500_000_000), sent[1].Tx.GasTipCap())
}

func TestWalletLocksHonourContext(t *testing.T) {
	locks := newWalletLocks()
	release, err := locks.acquire(context.Background(), walletAddress.Hex())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, walletAddress.Lower())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := locks.acquire(context.Background(), walletAddress.Hex())
	require.NoError(t, err)
	release2()

	other, err := locks.acquire(context.Background(), recipient.Hex())
	require.NoError(t, err)
	other()
}

func TestWaitTransactionConfirmation(t *testing.T) {
	env := newTestEnv(t)
	hash := "0x" + strings.Repeat("ab", 32)
	ctx := context.Background()

	status, receipt, err := env.chain.WaitTransactionConfirmation(ctx, hash, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, types.TxPending, status)
	assert.Nil(t, receipt)

	env.node.SetReceipt(hash, 1, 123)
	status, receipt, err = env.chain.WaitTransactionConfirmation(ctx, hash, time.Second)
	require.NoError(t, err)
	assert.Equal(t, types.TxConfirmed, status)
	assert.Equal(t, uint64(123), receipt.BlockNumber)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = env.chain.WaitTransactionConfirmation(cancelled, "0x"+strings.Repeat("ee", 32), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateGasIsUnbuffered(t *testing.T) {
	env := newTestEnv(t)
	data, err := codec.EncodeTransfer(recipient, big.NewInt(1))
	require.NoError(t, err)

	gas, err := env.chain.EstimateGas(context.Background(), walletAddress.Hex(), usdcAddress.Hex(), nil, data)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), gas)
}
