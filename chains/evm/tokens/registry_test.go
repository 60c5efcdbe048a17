package tokens

import (
	"context"
	"math/big"
	"testing"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdc = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

func testConfig() *types.ChainConfig {
	return &types.ChainConfig{
		Name:         "Ethereum Mainnet",
		NativeSymbol: "ETH",
		Contracts:    &types.Contracts{WETH: weth},
		Tokens: []types.Token{
			{Symbol: "ETH", Address: types.NativeTokenAddress, Decimals: 18, Native: true},
			{Symbol: "WETH", Address: weth, Decimals: 18},
			{Symbol: "USDC", Address: usdc, Decimals: 6},
		},
	}
}

func newTestRegistry() *Registry {
	return NewRegistry(testConfig(), logrus.New())
}

type fakeCaller struct {
	answers map[[4]byte][]byte
	calls   int
}

func (f *fakeCaller) CallContract(_ context.Context, _ string, data []byte) ([]byte, error) {
	f.calls++
	var sel [4]byte
	copy(sel[:], data)
	out, ok := f.answers[sel]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func word(v int64) []byte {
	out := make([]byte, codec.WordSize)
	big.NewInt(v).FillBytes(out)
	return out
}

func abiString(s string) []byte {
	out := append(word(32), word(int64(len(s)))...)
	padded := make([]byte, (len(s)+31)/32*32)
	copy(padded, s)
	return append(out, padded...)
}

func TestResolveSymbols(t *testing.T) {
	r := newTestRegistry()

	for _, input := range []string{"USDC", "usdc", " Usdc "} {
		token, err := r.Resolve(input)
		require.NoError(t, err, input)
		assert.Equal(t, usdc, token.Address)
		assert.Equal(t, uint8(6), token.Decimals)
	}

	eth, err := r.Resolve("eth")
	require.NoError(t, err)
	assert.True(t, eth.Native)

	_, err = r.Resolve("NOPE")
	assert.ErrorIs(t, err, dexerrors.ErrUnknownToken)
}

func TestResolveAddresses(t *testing.T) {
	r := newTestRegistry()

	token, err := r.Resolve("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.NoError(t, err)
	assert.Equal(t, "USDC", token.Symbol)

	native, err := r.Resolve(types.NativeTokenAddress)
	require.NoError(t, err)
	assert.True(t, native.Native)

	unlisted, err := r.Resolve("0x5555555555555555555555555555555555555555")
	require.NoError(t, err)
	assert.Equal(t, unlisted.Address, unlisted.Symbol)
	assert.Equal(t, DefaultDecimals, unlisted.Decimals)

	_, err = r.Resolve("0x1234")
	var encErr *dexerrors.EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestResolveForSwap(t *testing.T) {
	r := newTestRegistry()

	token, native, err := r.ResolveForSwap(context.Background(), nil, "ETH", nil)
	require.NoError(t, err)
	assert.True(t, native)
	assert.Equal(t, weth, token.Address)

	token, native, err = r.ResolveForSwap(context.Background(), nil, "USDC", nil)
	require.NoError(t, err)
	assert.False(t, native)
	assert.Equal(t, "USDC", token.Symbol)

	config := testConfig()
	config.Contracts = nil
	_, _, err = NewRegistry(config, logrus.New()).ResolveForSwap(context.Background(), nil, "ETH", nil)
	assert.ErrorIs(t, err, dexerrors.ErrSwapNotSupported)
}

func TestRegistryListing(t *testing.T) {
	r := newTestRegistry()

	assert.True(t, r.IsListed(usdc))
	assert.False(t, r.IsListed(types.NativeTokenAddress))
	assert.False(t, r.IsListed("0x5555555555555555555555555555555555555555"))

	symbols := []string{}
	for _, token := range r.Tokens() {
		symbols = append(symbols, token.Symbol)
	}
	assert.Equal(t, []string{"USDC", "WETH"}, symbols)

	wrapped, ok := r.WETH()
	require.True(t, ok)
	assert.Equal(t, "WETH", wrapped.Symbol)
	assert.Equal(t, "ETH", r.Native().Symbol)
}

func TestRegistryWithoutTable(t *testing.T) {
	r := NewRegistry(&types.ChainConfig{Name: "Polygon", NativeSymbol: "POL", Contracts: &types.Contracts{WETH: weth}}, logrus.New())

	native, err := r.Resolve("pol")
	require.NoError(t, err)
	assert.True(t, native.Native)

	wrapped, ok := r.WETH()
	require.True(t, ok)
	assert.Equal(t, "WPOL", wrapped.Symbol)
	assert.True(t, r.IsListed(weth))
}

func TestDiscover(t *testing.T) {
	r := newTestRegistry()
	address := "0x5555555555555555555555555555555555555555"
	caller := &fakeCaller{answers: map[[4]byte][]byte{
		codec.SelectorDecimals: word(9),
		codec.SelectorSymbol:   abiString("SCAM"),
	}}
	ctx := context.Background()

	token, err := r.Discover(ctx, caller, address)
	require.NoError(t, err)
	assert.Equal(t, "SCAM", token.Symbol)
	assert.Equal(t, uint8(9), token.Decimals)
	assert.Equal(t, 2, caller.calls)

	again, err := r.Discover(ctx, caller, address)
	require.NoError(t, err)
	assert.Equal(t, token, again)
	assert.Equal(t, 2, caller.calls)

	bySymbol, err := r.Resolve("scam")
	require.NoError(t, err)
	assert.Equal(t, token.Address, bySymbol.Address)

	byAddress, err := r.Resolve(address)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), byAddress.Decimals)
	assert.False(t, r.IsListed(address))
}

func TestDiscoverFallsBack(t *testing.T) {
	r := newTestRegistry()
	caller := &fakeCaller{answers: map[[4]byte][]byte{}}

	token, err := r.Discover(context.Background(), caller, "0x6666666666666666666666666666666666666666")
	require.NoError(t, err)
	assert.Equal(t, DefaultDecimals, token.Decimals)
	assert.Equal(t, token.Address, token.Symbol)

	_, err = r.Discover(context.Background(), caller, "nope")
	assert.Error(t, err)
}

func TestListedLookupWinsOverDiscover(t *testing.T) {
	r := newTestRegistry()
	caller := &fakeCaller{}

	token, err := r.Discover(context.Background(), caller, usdc)
	require.NoError(t, err)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Zero(t, caller.calls)
}

func TestResolveOnChain(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	address := "0x7777777777777777777777777777777777777777"
	caller := &fakeCaller{answers: map[[4]byte][]byte{
		codec.SelectorDecimals: word(6),
		codec.SelectorSymbol:   abiString("SIX"),
	}}

	listed, err := r.ResolveOnChain(ctx, caller, "usdc", nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), listed.Decimals)
	assert.Zero(t, caller.calls)

	six := uint8(6)
	overridden, err := r.ResolveOnChain(ctx, caller, address, &six)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), overridden.Decimals)
	assert.Zero(t, caller.calls)

	offline, err := r.ResolveOnChain(ctx, nil, address, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDecimals, offline.Decimals)

	discovered, err := r.ResolveOnChain(ctx, caller, address, nil)
	require.NoError(t, err)
	assert.Equal(t, "SIX", discovered.Symbol)
	assert.Equal(t, uint8(6), discovered.Decimals)
	assert.Equal(t, 2, caller.calls)

	token, native, err := r.ResolveForSwap(ctx, caller, address, nil)
	require.NoError(t, err)
	assert.False(t, native)
	assert.Equal(t, discovered, token)
	assert.Equal(t, 2, caller.calls)

	eighteen := uint8(18)
	token, _, err = r.ResolveForSwap(ctx, caller, "USDC", &eighteen)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), token.Decimals)
}
