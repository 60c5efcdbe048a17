package dbconfig

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ClipFinance/dex-engine/chainmanager"
	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/ClipFinance/dex-engine/dbconfig/models"
	"github.com/pkg/errors"
)

// LoadNetworks overlays the chains, rpcs and tokens tables on networks and
// returns the result. Entries of networks are modified in place.
//   - an active chain row overrides the non-empty fields of its entry, or adds a new entry;
//   - an inactive chain row removes its entry;
//   - active RPC rows replace the entry's RPC URLs;
//   - token rows are added to the entry's table unless the address is already listed.
//
// Parameters:
// - ctx: the context for managing the request.
// - networks: the base table, usually chainmanager.DefaultNetworks().
//
// Returns:
// - map[uint64]*types.ChainConfig: the merged table.
// - error: an error if any query fails or a row carries a malformed address.
func (r *DBConfig) LoadNetworks(ctx context.Context, networks map[uint64]*types.ChainConfig) (map[uint64]*types.ChainConfig, error) {
	if networks == nil {
		networks = map[uint64]*types.ChainConfig{}
	}

	chains, err := r.GetChains(ctx, false)
	if err != nil {
		return nil, err
	}

	for _, row := range chains {
		if !row.Active {
			delete(networks, row.ChainID)
			continue
		}

		config, ok := networks[row.ChainID]
		if !ok {
			config = newNetwork(row.ChainID)
			networks[row.ChainID] = config
		}
		if err := applyChain(config, row); err != nil {
			return nil, err
		}

		rpcs, err := r.GetRPCsByChainID(ctx, row.ChainID, true)
		if err != nil {
			return nil, err
		}
		if len(rpcs) > 0 {
			config.RpcUrls = make([]string, 0, len(rpcs))
			for _, rpc := range rpcs {
				config.RpcUrls = append(config.RpcUrls, rpc.URL)
			}
		}

		tokens, err := r.GetTokensByChainID(ctx, row.ChainID)
		if err != nil {
			return nil, err
		}
		if err := applyTokens(config, tokens); err != nil {
			return nil, err
		}
	}

	return networks, nil
}

func newNetwork(chainID uint64) *types.ChainConfig {
	return &types.ChainConfig{
		Name:           fmt.Sprintf("Chain %d", chainID),
		ChainID:        chainID,
		NativeSymbol:   "ETH",
		DefaultFeeTier: types.DefaultFeeTier,
		LogChunkSize:   500,
		PriorityFee:    new(big.Int).Set(chainmanager.DefaultPriorityFee),
	}
}

func applyChain(config *types.ChainConfig, row models.Chain) error {
	if row.Name != "" {
		config.Name = row.Name
	}
	if row.ExplorerURL != "" {
		config.ExplorerURL = strings.TrimRight(row.ExplorerURL, "/")
	}
	if row.NativeSymbol != "" {
		config.NativeSymbol = row.NativeSymbol
	}
	if row.DefaultFeeTier != 0 {
		config.DefaultFeeTier = row.DefaultFeeTier
	}
	if row.LogChunkSize != 0 {
		config.LogChunkSize = row.LogChunkSize
	}
	config.SafetyGuard = config.SafetyGuard || row.SafetyGuard

	if row.QuoterV2 == "" && row.SwapRouter02 == "" && row.WETH == "" {
		return nil
	}
	contracts := types.Contracts{}
	if config.Contracts != nil {
		contracts = *config.Contracts
	}
	for _, field := range []struct {
		name  string
		value string
		dst   *string
	}{
		{"quoter_v2", row.QuoterV2, &contracts.QuoterV2},
		{"swap_router02", row.SwapRouter02, &contracts.SwapRouter02},
		{"weth", row.WETH, &contracts.WETH},
	} {
		if field.value == "" {
			continue
		}
		address, err := codec.ParseAddress(field.value)
		if err != nil {
			return errors.Wrapf(err, "chain %d %s", row.ChainID, field.name)
		}
		*field.dst = address.Hex()
	}
	config.Contracts = &contracts
	return nil
}

func applyTokens(config *types.ChainConfig, rows []models.Token) error {
	listed := map[string]bool{}
	for _, token := range config.Tokens {
		listed[strings.ToLower(token.Address)] = true
	}

	for _, row := range rows {
		address, err := codec.ParseAddress(row.Address)
		if err != nil {
			return errors.Wrapf(err, "chain %d token %s", row.ChainID, row.Symbol)
		}
		if listed[address.Lower()] {
			continue
		}
		listed[address.Lower()] = true
		config.Tokens = append(config.Tokens, types.Token{
			Symbol:   row.Symbol,
			Address:  address.Hex(),
			Decimals: row.Decimals,
		})
	}
	return nil
}
