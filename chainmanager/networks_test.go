package chainmanager

import (
	"testing"

	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNetworks(t *testing.T) {
	networks := DefaultNetworks()
	assert.Equal(t, []uint64{
		ChainIDEthereum, ChainIDGoerli, ChainIDOptimism, ChainIDPolygon,
		ChainIDBase, ChainIDArbitrum, ChainIDSepolia,
	}, SortedChainIDs(networks))

	for id, network := range networks {
		assert.Equal(t, id, network.ChainID)
		assert.Empty(t, network.RpcUrls, network.Name)
		assert.Equal(t, uint64(500), network.LogChunkSize)
		assert.Equal(t, uint32(3000), network.DefaultFeeTier)

		native := 0
		for _, token := range network.Tokens {
			if token.Native {
				native++
				continue
			}
			_, err := codec.ParseAddress(token.Address)
			assert.NoError(t, err, "%s %s", network.Name, token.Symbol)
		}
		assert.Equal(t, 1, native, network.Name)

		if network.Contracts != nil {
			assert.True(t, network.SupportsSwaps(), network.Name)
		}
	}

	assert.False(t, networks[ChainIDGoerli].SupportsSwaps())
	assert.Equal(t, "POL", networks[ChainIDPolygon].NativeSymbol)
}

func TestDefaultNetworksAreCopies(t *testing.T) {
	first := DefaultNetworks()
	first[ChainIDEthereum].Tokens[0].Symbol = "CHANGED"
	first[ChainIDEthereum].PriorityFee.SetInt64(1)

	second := DefaultNetworks()
	require.NotEqual(t, "CHANGED", second[ChainIDEthereum].Tokens[0].Symbol)
	assert.Equal(t, DefaultPriorityFee, second[ChainIDEthereum].PriorityFee)
}

func TestChainNameAndExplorer(t *testing.T) {
	assert.Equal(t, "Arbitrum One", ChainName(ChainIDArbitrum))
	assert.Equal(t, "Unknown", ChainName(999))

	assert.Equal(t, "https://basescan.org/tx/0xabc", ExplorerTxURL(ChainIDBase, "0xabc"))
	assert.Equal(t, "https://etherscan.io/tx/0xabc", ExplorerTxURL(999, "0xabc"))
}
