package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTransportMode(t *testing.T) {
	assert.Equal(t, WebSocketMode, GetTransportMode("wss://mainnet.example/ws"))
	assert.Equal(t, WebSocketMode, GetTransportMode("ws://localhost:8546"))
	assert.Equal(t, HTTPMode, GetTransportMode("https://mainnet.example"))
	assert.Equal(t, HTTPMode, GetTransportMode("http://localhost:8545"))
	assert.Equal(t, "WebSocket", WebSocketMode.String())
	assert.Equal(t, "HTTP", HTTPMode.String())
}

func TestChainConfigURLs(t *testing.T) {
	config := &ChainConfig{ExplorerURL: "https://basescan.org"}
	assert.Equal(t, "https://basescan.org/tx/0xabc", config.TxURL("0xabc"))
	assert.Equal(t, "https://basescan.org/address/0xdef", config.AddressURL("0xdef"))
	assert.False(t, config.SupportsSwaps())

	assert.Equal(t, "", (&ChainConfig{}).TxURL("0xabc"))
}
