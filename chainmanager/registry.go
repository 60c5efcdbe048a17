package chainmanager

import (
	"context"
	"sort"
	"sync"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ChainCreator builds a chain from its configuration.
type ChainCreator interface {
	CreateChain(ctx context.Context, config *types.ChainConfig, logger *logrus.Logger) (types.Chain, error)
}

type blockchainRegistry struct {
	logger       *logrus.Logger
	chains       map[uint64]types.Chain
	chainsMutex  sync.RWMutex
	factory      ChainCreator
	factoryMutex sync.RWMutex
}

// NewChainRegistry creates a registry that builds chains with factory.
//
// Parameters:
// - factory: the chain constructor.
// - logger: the logger for logging events.
//
// Returns:
// - types.ChainRegistry: the registry.
func NewChainRegistry(factory ChainCreator, logger *logrus.Logger) types.ChainRegistry {
	return &blockchainRegistry{
		chains:  make(map[uint64]types.Chain),
		factory: factory,
		logger:  logger,
	}
}

func (r *blockchainRegistry) Add(ctx context.Context, config *types.ChainConfig) error {
	if config == nil || config.ChainID == 0 {
		return dexerrors.ErrInvalidChainID
	}

	r.chainsMutex.RLock()
	_, exists := r.chains[config.ChainID]
	r.chainsMutex.RUnlock()
	if exists {
		return errors.Wrapf(dexerrors.ErrChainExists, "chain %d", config.ChainID)
	}

	// Lock factory for reading to prevent changes during chain creation.
	r.factoryMutex.RLock()
	chain, err := r.factory.CreateChain(ctx, config, r.logger)
	r.factoryMutex.RUnlock()

	if err != nil {
		return errors.Wrapf(err, "failed to create chain %s", config.Name)
	}

	r.chainsMutex.Lock()
	if _, exists := r.chains[config.ChainID]; exists {
		r.chainsMutex.Unlock()
		chain.Close()
		return errors.Wrapf(dexerrors.ErrChainExists, "chain %d", config.ChainID)
	}
	r.chains[config.ChainID] = chain
	r.chainsMutex.Unlock()

	r.logger.WithFields(logrus.Fields{
		"chain":   config.Name,
		"chainId": config.ChainID,
	}).Info("Chain added")

	return nil
}

func (r *blockchainRegistry) Get(chainID uint64) types.Chain {
	r.chainsMutex.RLock()
	chain := r.chains[chainID]
	r.chainsMutex.RUnlock()
	return chain
}

func (r *blockchainRegistry) Remove(chainID uint64) {
	r.chainsMutex.Lock()
	chain, ok := r.chains[chainID]
	delete(r.chains, chainID)
	r.chainsMutex.Unlock()

	if ok {
		chain.Close()
	}
}

func (r *blockchainRegistry) List() []uint64 {
	r.chainsMutex.RLock()
	defer r.chainsMutex.RUnlock()

	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
