package cmd

import (
	"context"

	"github.com/ClipFinance/dex-engine/chainmanager"
	"github.com/ClipFinance/dex-engine/chains"
	"github.com/ClipFinance/dex-engine/chains/evm"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/ClipFinance/dex-engine/dbconfig"
	"github.com/ClipFinance/dex-engine/tools"
	"github.com/ClipFinance/dex-engine/vault"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	viper      *viper.Viper
	configFile string

	config *Config
	logger *logrus.Logger
}

func (a *app) init() error {
	config, err := loadConfig(a.viper, a.configFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(config.Log)
	if err != nil {
		return err
	}
	a.config = config
	a.logger = logger
	return nil
}

// networks returns the chain table: the built-in entries, overlaid with the
// database rows when a DSN is configured, then with the RPC and safety
// guard settings for the configured chain.
func (a *app) networks(ctx context.Context) (map[uint64]*types.ChainConfig, error) {
	networks := chainmanager.DefaultNetworks()

	if a.config.DB.DSN != "" {
		store, err := dbconfig.NewDBConfig(a.config.DB.DSN)
		if err != nil {
			return nil, err
		}
		if networks, err = store.LoadNetworks(ctx, networks); err != nil {
			return nil, errors.Wrap(err, "failed to load chains from database")
		}
	}

	if network, ok := networks[a.config.ChainID]; ok {
		if len(a.config.RPCURLs) > 0 {
			network.RpcUrls = append([]string{}, a.config.RPCURLs...)
		}
		network.SafetyGuard = network.SafetyGuard || a.config.SafetyGuard
	}
	return networks, nil
}

// registry connects the given chains. Chains without RPC endpoints are
// skipped with a warning so wallet-create still works offline.
func (a *app) registry(ctx context.Context, chainIDs []uint64, opts ...evm.Option) (types.ChainRegistry, func(), error) {
	networks, err := a.networks(ctx)
	if err != nil {
		return nil, nil, err
	}

	registry := chainmanager.NewChainRegistry(chains.NewChainFactory(opts...), a.logger)
	release := func() {
		for _, id := range registry.List() {
			registry.Remove(id)
		}
	}

	for _, id := range chainIDs {
		network, ok := networks[id]
		if !ok {
			release()
			return nil, nil, errors.Wrapf(dexerrors.ErrChainNotFound, "chain %d", id)
		}
		if registry.Get(id) != nil {
			continue
		}
		if len(network.RpcUrls) == 0 {
			a.logger.WithFields(logrus.Fields{
				"chain":   network.Name,
				"chainId": id,
			}).Warn("No RPC endpoints configured, set rpc_urls or DEX_RPC_URLS")
			continue
		}
		if err := registry.Add(ctx, network); err != nil {
			release()
			return nil, nil, err
		}
	}
	return registry, release, nil
}

// wallets opens the keystore vault, or an in-memory vault when no
// directory is configured.
func (a *app) wallets() (types.WalletStore, func(), error) {
	if a.config.Vault.Dir == "" {
		a.logger.Warn("No vault directory configured, wallets are kept in memory for this run only")
		memory := vault.NewMemory()
		return memory, memory.Wipe, nil
	}

	var opts []vault.KeystoreOption
	if a.config.Vault.LightScrypt {
		opts = append(opts, vault.WithLightScrypt())
	}
	keystore, err := vault.NewKeystore(a.config.Vault.Dir, a.config.Vault.Passphrase, a.logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return keystore, func() {}, nil
}

// toolbox wires a toolbox over the configured chain, plus chainID when a
// call names another one.
func (a *app) toolbox(ctx context.Context, chainID uint64) (*tools.Toolbox, func(), error) {
	wallets, closeWallets, err := a.wallets()
	if err != nil {
		return nil, nil, err
	}

	ids := []uint64{a.config.ChainID}
	if chainID != 0 && chainID != a.config.ChainID {
		ids = append(ids, chainID)
	}
	registry, release, err := a.registry(ctx, ids, evm.WithVault(wallets))
	if err != nil {
		closeWallets()
		return nil, nil, err
	}

	toolbox := tools.New(registry, wallets, a.config.ChainID, a.logger, tools.WithWalletID(a.config.Wallet))
	return toolbox, func() {
		release()
		closeWallets()
	}, nil
}
