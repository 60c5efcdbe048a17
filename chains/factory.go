package chains

import (
	"context"
	"sync"

	"github.com/ClipFinance/dex-engine/chains/evm"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/sirupsen/logrus"
)

// ChainConstructor represents a function that constructs a new chain instance.
//
// Parameters:
// - ctx: the context for dialing the RPC endpoint.
// - config: the configuration for the chain.
// - logger: the logger for logging purposes.
//
// Returns:
// - types.Chain: the constructed chain instance.
// - error: an error if the chain construction fails.
type ChainConstructor func(ctx context.Context, config *types.ChainConfig, logger *logrus.Logger) (types.Chain, error)

// ChainFactory defines the interface for chain creation.
type ChainFactory interface {
	// RegisterConstructor overrides the constructor used for one chain id.
	//
	// Parameters:
	// - chainID: the chain the constructor builds.
	// - constructor: the constructor function.
	RegisterConstructor(chainID uint64, constructor ChainConstructor)

	// CreateChain creates a new chain instance based on the configuration.
	//
	// Parameters:
	// - ctx: the context for dialing the RPC endpoint.
	// - config: the configuration for the chain.
	// - logger: the logger for logging purposes.
	//
	// Returns:
	// - types.Chain: the created chain instance.
	// - error: an error if the chain creation fails.
	CreateChain(ctx context.Context, config *types.ChainConfig, logger *logrus.Logger) (types.Chain, error)
}

type chainFactory struct {
	// evmOptions are passed to every EVM chain built by the default constructor.
	evmOptions []evm.Option
	// constructors stores per-chain overrides.
	constructors map[uint64]ChainConstructor
	// constructorsMutex protects access to the constructors map.
	constructorsMutex sync.RWMutex
}

// NewChainFactory creates a new instance of the chain factory. Chains are
// built as EVM chains with opts unless a constructor was registered for
// their id.
//
// Returns:
// - ChainFactory: the new chain factory instance.
func NewChainFactory(opts ...evm.Option) ChainFactory {
	return &chainFactory{
		evmOptions:   opts,
		constructors: make(map[uint64]ChainConstructor),
	}
}

func (f *chainFactory) RegisterConstructor(chainID uint64, constructor ChainConstructor) {
	f.constructorsMutex.Lock()
	defer f.constructorsMutex.Unlock()

	f.constructors[chainID] = constructor
}

func (f *chainFactory) CreateChain(ctx context.Context, config *types.ChainConfig, logger *logrus.Logger) (types.Chain, error) {
	f.constructorsMutex.RLock()
	constructor, exists := f.constructors[config.ChainID]
	f.constructorsMutex.RUnlock()

	if exists {
		return constructor(ctx, config, logger)
	}
	return evm.NewEvmChain(ctx, config, logger, f.evmOptions...)
}
