package evm

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ClipFinance/dex-engine/chainmanager"
	"github.com/ClipFinance/dex-engine/chains/evm/rpcclient"
	"github.com/ClipFinance/dex-engine/chains/evm/safety"
	"github.com/ClipFinance/dex-engine/chains/evm/tokens"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/ClipFinance/dex-engine/connectionmonitor"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// defaultPollInterval is the delay between two receipt queries.
	defaultPollInterval = 2 * time.Second
	// approvalTimeout bounds the wait for an approval receipt.
	approvalTimeout = 60 * time.Second
	// receiptTimeout bounds the wait for a swap or transfer receipt.
	receiptTimeout = 120 * time.Second
)

// evm represents the base EVM chain implementation.
type evm struct {
	config   *types.ChainConfig // Chain configuration.
	logger   *logrus.Logger     // Logger for logging events.
	registry *tokens.Registry   // Token registry of the chain.
	vault    types.Vault        // Key source for signing; nil for read-only chains.
	metrics  *metrics           // Transaction outcome counters.
	locks    *walletLocks       // Per-wallet submission locks.
	honeypot types.HoneypotChecker

	pollInterval    time.Duration
	approvalTimeout time.Duration
	receiptTimeout  time.Duration

	// Protected fields with their own mutexes.
	clientMutex sync.RWMutex      // Mutex for client.
	client      *rpcclient.Client // JSON-RPC client.

	monitorMutex sync.RWMutex                        // Mutex for connection monitor.
	monitor      connectionmonitor.ConnectionMonitor // Connection monitor, nil unless enabled.
}

type options struct {
	vault           types.Vault
	registerer      prometheus.Registerer
	httpClient      *http.Client
	honeypot        types.HoneypotChecker
	monitor         bool
	pollInterval    time.Duration
	approvalTimeout time.Duration
	receiptTimeout  time.Duration
}

// Option configures an EVM chain.
type Option func(*options)

// WithVault enables transfers and swaps from the wallets of v.
func WithVault(v types.Vault) Option {
	return func(o *options) { o.vault = v }
}

// WithRegisterer registers RPC and transaction metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithHTTPClient replaces the HTTP client of the RPC connection.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithHoneypotChecker replaces the probe used by the swap safety guard.
func WithHoneypotChecker(c types.HoneypotChecker) Option {
	return func(o *options) { o.honeypot = c }
}

// WithConnectionMonitor starts a background health check that rotates RPC
// endpoints when the current one stops answering.
func WithConnectionMonitor() Option {
	return func(o *options) { o.monitor = true }
}

// WithPolling overrides the receipt polling interval and the approval and
// receipt timeouts. Zero values keep the defaults.
func WithPolling(interval, approval, receipt time.Duration) Option {
	return func(o *options) {
		o.pollInterval = interval
		o.approvalTimeout = approval
		o.receiptTimeout = receipt
	}
}

// NewEvmChain creates a new EVM chain implementation.
//
// Parameters:
// - ctx: the context for managing the request.
// - config: the chain configuration.
// - logger: the logger for logging events.
// - opts: optional settings.
//
// Returns:
// - types.Chain: a new EVM chain instance.
// - error: an error if any issue occurs during creation.
func NewEvmChain(ctx context.Context, config *types.ChainConfig, logger *logrus.Logger, opts ...Option) (types.Chain, error) {
	if config == nil || config.ChainID == 0 {
		return nil, dexerrors.ErrInvalidChainID
	}

	o := options{
		pollInterval:    defaultPollInterval,
		approvalTimeout: approvalTimeout,
		receiptTimeout:  receiptTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pollInterval <= 0 {
		o.pollInterval = defaultPollInterval
	}
	if o.approvalTimeout <= 0 {
		o.approvalTimeout = approvalTimeout
	}
	if o.receiptTimeout <= 0 {
		o.receiptTimeout = receiptTimeout
	}

	clientOpts := []rpcclient.Option{
		rpcclient.WithChainName(config.Name),
		rpcclient.WithExpectedChainID(config.ChainID),
		rpcclient.WithMetrics(o.registerer),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, rpcclient.WithHTTPClient(o.httpClient))
	}

	client, err := rpcclient.Dial(ctx, config.RpcUrls, logger, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	chain := &evm{
		config:          config,
		logger:          logger,
		registry:        tokens.NewRegistry(config, logger),
		vault:           o.vault,
		metrics:         newMetrics(o.registerer),
		locks:           newWalletLocks(),
		honeypot:        o.honeypot,
		pollInterval:    o.pollInterval,
		approvalTimeout: o.approvalTimeout,
		receiptTimeout:  o.receiptTimeout,
		client:          client,
	}

	if config.SafetyGuard && chain.honeypot == nil {
		chain.honeypot = safety.NewAnalyzer(chain, logger)
	}

	if o.monitor {
		if err := chain.initMonitor(ctx, connectionmonitor.WithMetrics(o.registerer)); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "failed to init connection monitor")
		}
	}

	builder := chainmanager.NewChainBuilder(config).
		WithGasEstimator(chain).
		WithTransactionWatcher(chain).
		WithQuoter(chain).
		WithBalanceProvider(chain).
		WithTokenInspector(chain).
		WithContractReader(chain).
		WithTokenResolver(chain).
		WithCloser(chain.Close)

	if chain.vault != nil {
		builder.WithTransactionSender(chain)
		builder.WithSwapper(chain)
	}

	logger.WithFields(logrus.Fields{
		"chain":    config.Name,
		"chainId":  config.ChainID,
		"readOnly": chain.vault == nil,
		"swaps":    config.SupportsSwaps(),
	}).Info("EVM chain initialized")

	return builder.Build(), nil
}

// Config returns the chain configuration.
func (e *evm) Config() *types.ChainConfig {
	return e.config
}

// ResolveToken resolves a symbol or address against the token registry.
// Unlisted addresses get their symbol and decimals from the contract.
func (e *evm) ResolveToken(ctx context.Context, symbolOrAddress string) (types.Token, error) {
	return e.registry.ResolveOnChain(ctx, e, symbolOrAddress, nil)
}

// Close should be called when the chain is no longer needed.
// It stops the connection monitor and closes the client.
func (e *evm) Close() {
	e.monitorMutex.Lock()
	if e.monitor != nil {
		e.monitor.Stop()
		e.monitor = nil
	}
	e.monitorMutex.Unlock()

	e.clientMutex.Lock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	e.clientMutex.Unlock()
}

// getClient returns the JSON-RPC client, or an error after Close.
func (e *evm) getClient() (*rpcclient.Client, error) {
	e.clientMutex.RLock()
	client := e.client
	e.clientMutex.RUnlock()

	if client == nil {
		return nil, errors.New("client not initialized")
	}
	return client, nil
}
