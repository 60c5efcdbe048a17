package chainmanager

import (
	"math/big"
	"sort"

	"github.com/ClipFinance/dex-engine/common/types"
)

const (
	// ChainIDEthereum is Ethereum mainnet.
	ChainIDEthereum uint64 = 1
	ChainIDGoerli   uint64 = 5
	ChainIDSepolia  uint64 = 11155111
	ChainIDPolygon  uint64 = 137
	ChainIDArbitrum uint64 = 42161
	ChainIDOptimism uint64 = 10
	ChainIDBase     uint64 = 8453

	// defaultExplorer is used for chains without an entry in the table.
	defaultExplorer = "https://etherscan.io"
)

// DefaultPriorityFee is the fixed 1.5 gwei EIP-1559 tip.
var DefaultPriorityFee = big.NewInt(1_500_000_000)

var (
	mainnetContracts = types.Contracts{
		QuoterV2:     "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
		SwapRouter02: "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
		WETH:         "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	}

	mainnetTokens = []types.Token{
		{Symbol: "ETH", Address: types.NativeTokenAddress, Decimals: 18, Native: true},
		{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
		{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
		{Symbol: "WBTC", Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Decimals: 8},
		{Symbol: "UNI", Address: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", Decimals: 18},
		{Symbol: "LINK", Address: "0x514910771AF9Ca656af840dff83E8264EcF986CA", Decimals: 18},
		{Symbol: "PEPE", Address: "0x6982508145454Ce325dDbE47a25d4ec3d2311933", Decimals: 18},
		{Symbol: "SHIB", Address: "0x95aD61b0a150d79219dCF64E1E6Cc01f0B64C4cE", Decimals: 18},
		{Symbol: "ARB", Address: "0xB50721BCf8d664c30412Cfbc6cf7a15145234ad1", Decimals: 18},
		{Symbol: "AAVE", Address: "0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9", Decimals: 18},
	}
)

func native(symbol string) types.Token {
	return types.Token{Symbol: symbol, Address: types.NativeTokenAddress, Decimals: 18, Native: true}
}

func network(chainID uint64, name, explorer, nativeSymbol string, contracts *types.Contracts, tokens []types.Token) *types.ChainConfig {
	return &types.ChainConfig{
		Name:           name,
		ChainID:        chainID,
		ExplorerURL:    explorer,
		NativeSymbol:   nativeSymbol,
		Contracts:      contracts,
		Tokens:         tokens,
		DefaultFeeTier: types.DefaultFeeTier,
		LogChunkSize:   500,
		PriorityFee:    new(big.Int).Set(DefaultPriorityFee),
	}
}

// DefaultNetworks returns the built-in chain table keyed by chain id. RPC
// URLs are left empty; they come from configuration or the database. Each
// call returns fresh copies.
func DefaultNetworks() map[uint64]*types.ChainConfig {
	mainnet := mainnetContracts
	arbitrum := types.Contracts{QuoterV2: mainnet.QuoterV2, SwapRouter02: mainnet.SwapRouter02, WETH: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"}
	optimism := types.Contracts{QuoterV2: mainnet.QuoterV2, SwapRouter02: mainnet.SwapRouter02, WETH: "0x4200000000000000000000000000000000000006"}
	polygon := types.Contracts{QuoterV2: mainnet.QuoterV2, SwapRouter02: mainnet.SwapRouter02, WETH: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"}
	base := types.Contracts{
		QuoterV2:     "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a",
		SwapRouter02: "0x2626664c2603336E57B271c5C0b26F421741e481",
		WETH:         "0x4200000000000000000000000000000000000006",
	}
	sepolia := types.Contracts{
		QuoterV2:     "0xEd1f6473345F45b75F8179591dd5bA1888cf2FB3",
		SwapRouter02: "0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E",
		WETH:         "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14",
	}

	return map[uint64]*types.ChainConfig{
		ChainIDEthereum: network(ChainIDEthereum, "Ethereum Mainnet", "https://etherscan.io", "ETH", &mainnet,
			append([]types.Token{}, mainnetTokens...)),
		ChainIDGoerli: network(ChainIDGoerli, "Goerli Testnet", "https://goerli.etherscan.io", "ETH", nil,
			[]types.Token{native("ETH")}),
		ChainIDSepolia: network(ChainIDSepolia, "Sepolia Testnet", "https://sepolia.etherscan.io", "ETH", &sepolia, []types.Token{
			native("ETH"),
			{Symbol: "WETH", Address: sepolia.WETH, Decimals: 18},
			{Symbol: "USDC", Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", Decimals: 6},
		}),
		ChainIDPolygon: network(ChainIDPolygon, "Polygon", "https://polygonscan.com", "POL", &polygon, []types.Token{
			native("POL"),
			{Symbol: "WPOL", Address: polygon.WETH, Decimals: 18},
			{Symbol: "USDC", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
		}),
		ChainIDArbitrum: network(ChainIDArbitrum, "Arbitrum One", "https://arbiscan.io", "ETH", &arbitrum, []types.Token{
			native("ETH"),
			{Symbol: "WETH", Address: arbitrum.WETH, Decimals: 18},
			{Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
			{Symbol: "ARB", Address: "0x912CE59144191C1204E64559FE8253a0e49E6548", Decimals: 18},
		}),
		ChainIDOptimism: network(ChainIDOptimism, "Optimism", "https://optimistic.etherscan.io", "ETH", &optimism, []types.Token{
			native("ETH"),
			{Symbol: "WETH", Address: optimism.WETH, Decimals: 18},
			{Symbol: "USDC", Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Decimals: 6},
		}),
		ChainIDBase: network(ChainIDBase, "Base", "https://basescan.org", "ETH", &base, []types.Token{
			native("ETH"),
			{Symbol: "WETH", Address: base.WETH, Decimals: 18},
			{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
		}),
	}
}

// Network returns the built-in entry for chainID, or nil.
func Network(chainID uint64) *types.ChainConfig {
	return DefaultNetworks()[chainID]
}

// ChainName returns the network name of chainID, "Unknown" when not listed.
func ChainName(chainID uint64) string {
	if n := Network(chainID); n != nil {
		return n.Name
	}
	return "Unknown"
}

// ExplorerTxURL returns the transaction link on the chain's explorer.
// Unlisted chains fall back to Etherscan.
func ExplorerTxURL(chainID uint64, txHash string) string {
	if n := Network(chainID); n != nil {
		return n.TxURL(txHash)
	}
	return defaultExplorer + "/tx/" + txHash
}

// SortedChainIDs returns the keys of networks in ascending order.
func SortedChainIDs(networks map[uint64]*types.ChainConfig) []uint64 {
	ids := make([]uint64, 0, len(networks))
	for id := range networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
