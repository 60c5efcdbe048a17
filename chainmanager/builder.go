package chainmanager

import (
	"github.com/ClipFinance/dex-engine/common/types"
)

// ChainBuilder is a builder pattern implementation for chain configuration.
// It allows setting the components of the chain one by one; components that
// are never set answer with ErrNotImplemented.
type ChainBuilder struct {
	chain *Chain
}

// NewChainBuilder creates a new chain builder instance.
//
// Parameters:
// - config: the chain configuration.
//
// Returns:
// - *ChainBuilder: a new ChainBuilder instance.
func NewChainBuilder(config *types.ChainConfig) *ChainBuilder {
	return &ChainBuilder{chain: &Chain{config: config}}
}

// WithGasEstimator sets gas estimator implementation.
func (b *ChainBuilder) WithGasEstimator(estimator types.GasEstimator) *ChainBuilder {
	b.chain.estimator = estimator
	return b
}

// WithTransactionSender sets transaction sender implementation.
func (b *ChainBuilder) WithTransactionSender(sender types.TransactionSender) *ChainBuilder {
	b.chain.sender = sender
	return b
}

// WithTransactionWatcher sets transaction watcher implementation.
func (b *ChainBuilder) WithTransactionWatcher(watcher types.TransactionWatcher) *ChainBuilder {
	b.chain.watcher = watcher
	return b
}

// WithQuoter sets quoter implementation.
func (b *ChainBuilder) WithQuoter(quoter types.Quoter) *ChainBuilder {
	b.chain.quoter = quoter
	return b
}

// WithSwapper sets swapper implementation.
func (b *ChainBuilder) WithSwapper(swapper types.Swapper) *ChainBuilder {
	b.chain.swapper = swapper
	return b
}

// WithBalanceProvider sets balance provider implementation.
func (b *ChainBuilder) WithBalanceProvider(provider types.BalanceProvider) *ChainBuilder {
	b.chain.provider = provider
	return b
}

// WithTokenInspector sets token inspector implementation.
func (b *ChainBuilder) WithTokenInspector(inspector types.TokenInspector) *ChainBuilder {
	b.chain.inspector = inspector
	return b
}

// WithContractReader sets contract reader implementation.
func (b *ChainBuilder) WithContractReader(reader types.ContractReader) *ChainBuilder {
	b.chain.reader = reader
	return b
}

// WithTokenResolver sets token resolver implementation.
func (b *ChainBuilder) WithTokenResolver(resolver types.TokenResolver) *ChainBuilder {
	b.chain.resolver = resolver
	return b
}

// WithCloser sets the function run by Close.
func (b *ChainBuilder) WithCloser(closer func()) *ChainBuilder {
	b.chain.closer = closer
	return b
}

// Build returns the chain with the configured implementations.
//
// Returns:
// - *Chain: the assembled chain.
func (b *ChainBuilder) Build() *Chain {
	return b.chain
}
