package chainmanager

import (
	"context"
	"math/big"
	"sync"
	"time"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
)

// ErrNotImplemented is returned for components a chain was built without,
// e.g. the transaction sender of a read-only chain.
var ErrNotImplemented = dexerrors.ErrNotImplemented

// Chain implements types.Chain interface with thread-safe access to dependencies.
// Each dependency is protected by a read-write mutex to ensure thread-safe access.
type Chain struct {
	config    *types.ChainConfig       // Chain configuration.
	estimator types.GasEstimator       // Gas estimator implementation.
	sender    types.TransactionSender  // Transaction sender implementation.
	watcher   types.TransactionWatcher // Transaction watcher implementation.
	quoter    types.Quoter             // Quoter implementation.
	swapper   types.Swapper            // Swapper implementation.
	provider  types.BalanceProvider    // Balance provider implementation.
	inspector types.TokenInspector     // Token inspector implementation.
	reader    types.ContractReader     // Contract reader implementation.
	resolver  types.TokenResolver      // Token resolver implementation.
	closer    func()                   // Releases the underlying connection.

	// Mutexes for thread-safe access to dependencies.
	estimatorMutex sync.RWMutex // Mutex for gas estimator.
	senderMutex    sync.RWMutex // Mutex for transaction sender and swapper.
	watcherMutex   sync.RWMutex // Mutex for transaction watcher.
	quoterMutex    sync.RWMutex // Mutex for quoter.
	providerMutex  sync.RWMutex // Mutex for balance provider.
	inspectorMutex sync.RWMutex // Mutex for token inspector and contract reader.
	closeOnce      sync.Once
}

func notImplemented(component string) error {
	return errors.Wrapf(ErrNotImplemented, "%s", component)
}

// EstimateGas estimates transaction gas with thread-safe access.
// If the estimator is not implemented, it returns an error.
//
// Parameters:
// - ctx: context for managing the lifecycle of the gas estimation.
// - from: the sender address of the transaction.
// - to: the recipient address of the transaction.
// - value: the amount of value to be sent in the transaction.
// - data: the input data for the transaction.
//
// Returns:
// - uint64: the estimated gas amount.
// - error: an error if the estimator is not implemented or if any issue occurs during estimation.
func (c *Chain) EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error) {
	c.estimatorMutex.RLock()
	defer c.estimatorMutex.RUnlock()

	if c.estimator == nil {
		return 0, notImplemented("gas estimator")
	}
	return c.estimator.EstimateGas(ctx, from, to, value, data)
}

// Transfer sends an asset with thread-safe access.
// If the sender is not implemented, it returns an error.
//
// Parameters:
// - ctx: context for managing the lifecycle of the transfer.
// - req: the transfer request.
//
// Returns:
// - *types.TransferResult: the transfer outcome.
// - error: an error if the sender is not implemented or if any issue occurs during sending.
func (c *Chain) Transfer(ctx context.Context, req *types.TransferRequest) (*types.TransferResult, error) {
	c.senderMutex.RLock()
	defer c.senderMutex.RUnlock()

	if c.sender == nil {
		return nil, notImplemented("transaction sender")
	}
	return c.sender.Transfer(ctx, req)
}

// WaitTransactionConfirmation waits for transaction confirmation with thread-safe access.
//
// Parameters:
// - ctx: context for managing the lifecycle of the transaction confirmation.
// - txHash: the transaction to be confirmed.
// - timeout: the polling budget.
//
// Returns:
// - types.TransactionStatus: the confirmation state.
// - *types.Receipt: the receipt, nil while pending.
// - error: an error if the watcher is not implemented or if any issue occurs during confirmation.
func (c *Chain) WaitTransactionConfirmation(ctx context.Context, txHash string, timeout time.Duration) (types.TransactionStatus, *types.Receipt, error) {
	c.watcherMutex.RLock()
	defer c.watcherMutex.RUnlock()

	if c.watcher == nil {
		return types.TxPending, nil, notImplemented("transaction watcher")
	}
	return c.watcher.WaitTransactionConfirmation(ctx, txHash, timeout)
}

// Quote prices an exact-input swap.
func (c *Chain) Quote(ctx context.Context, req *types.QuoteRequest) (*types.Quote, error) {
	c.quoterMutex.RLock()
	defer c.quoterMutex.RUnlock()

	if c.quoter == nil {
		return nil, notImplemented("quoter")
	}
	return c.quoter.Quote(ctx, req)
}

// QuoteExactInputSingle quotes raw amounts against a single pool.
func (c *Chain) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int, fee uint32) (*big.Int, error) {
	c.quoterMutex.RLock()
	defer c.quoterMutex.RUnlock()

	if c.quoter == nil {
		return nil, notImplemented("quoter")
	}
	return c.quoter.QuoteExactInputSingle(ctx, tokenIn, tokenOut, amountIn, fee)
}

// Swap executes a swap with thread-safe access.
// If the swapper is not implemented, it returns an error.
func (c *Chain) Swap(ctx context.Context, req *types.SwapRequest) (*types.SwapResult, error) {
	c.senderMutex.RLock()
	defer c.senderMutex.RUnlock()

	if c.swapper == nil {
		return nil, notImplemented("swapper")
	}
	return c.swapper.Swap(ctx, req)
}

// GetTokenBalance gets the native or ERC-20 balance of address.
func (c *Chain) GetTokenBalance(ctx context.Context, address string, tokenAddress string) (*big.Int, error) {
	c.providerMutex.RLock()
	provider := c.provider
	c.providerMutex.RUnlock()

	if provider == nil {
		return nil, notImplemented("balance provider")
	}

	return provider.GetTokenBalance(ctx, address, tokenAddress)
}

// GetPortfolio returns every non-zero balance of address.
func (c *Chain) GetPortfolio(ctx context.Context, address string, extraTokens []string) (*types.Portfolio, error) {
	c.providerMutex.RLock()
	provider := c.provider
	c.providerMutex.RUnlock()

	if provider == nil {
		return nil, notImplemented("balance provider")
	}

	return provider.GetPortfolio(ctx, address, extraTokens)
}

// TokenInfo reads the on-chain metadata of a token.
func (c *Chain) TokenInfo(ctx context.Context, token string) (*types.TokenInfo, error) {
	c.inspectorMutex.RLock()
	inspector := c.inspector
	c.inspectorMutex.RUnlock()

	if inspector == nil {
		return nil, notImplemented("token inspector")
	}
	return inspector.TokenInfo(ctx, token)
}

// TransferHistory returns the ERC-20 transfers of address over the last blocks.
func (c *Chain) TransferHistory(ctx context.Context, address, token string, blocks uint64) ([]types.TransferEvent, error) {
	c.inspectorMutex.RLock()
	inspector := c.inspector
	c.inspectorMutex.RUnlock()

	if inspector == nil {
		return nil, notImplemented("token inspector")
	}
	return inspector.TransferHistory(ctx, address, token, blocks)
}

// CallContract performs a read-only eth_call against the latest block.
func (c *Chain) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	c.inspectorMutex.RLock()
	reader := c.reader
	c.inspectorMutex.RUnlock()

	if reader == nil {
		return nil, notImplemented("contract reader")
	}
	return reader.CallContract(ctx, to, data)
}

// GetCode returns the deployed bytecode at address.
func (c *Chain) GetCode(ctx context.Context, address string) ([]byte, error) {
	c.inspectorMutex.RLock()
	reader := c.reader
	c.inspectorMutex.RUnlock()

	if reader == nil {
		return nil, notImplemented("contract reader")
	}
	return reader.GetCode(ctx, address)
}

// ResolveToken resolves a symbol or address against the chain's registry.
func (c *Chain) ResolveToken(ctx context.Context, symbolOrAddress string) (types.Token, error) {
	if c.resolver == nil {
		return types.Token{}, notImplemented("token resolver")
	}
	return c.resolver.ResolveToken(ctx, symbolOrAddress)
}

// Config returns chain configuration.
//
// Returns:
// - *types.ChainConfig: the chain configuration instance.
func (c *Chain) Config() *types.ChainConfig {
	return c.config
}

// Close releases the chain's connection. It is safe to call more than once.
func (c *Chain) Close() {
	c.closeOnce.Do(func() {
		if c.closer != nil {
			c.closer()
		}
	})
}

// GetSender returns the transaction sender with thread-safe access.
//
// Returns:
// - types.TransactionSender: the transaction sender instance.
func (c *Chain) GetSender() types.TransactionSender {
	c.senderMutex.RLock()
	defer c.senderMutex.RUnlock()
	return c.sender
}

// ReadOnly reports whether the chain was built without a transaction sender.
func (c *Chain) ReadOnly() bool {
	return c.GetSender() == nil
}
