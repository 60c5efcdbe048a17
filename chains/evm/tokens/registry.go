package tokens

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultDecimals is assumed for tokens whose decimals() cannot be read.
const DefaultDecimals = uint8(18)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)
}

// Registry resolves symbols and addresses to tokens for one chain. Lookups
// are case-insensitive. Tokens found on chain at runtime are cached and
// take part in later lookups.
type Registry struct {
	chainName    string
	nativeSymbol string
	logger       *logrus.Logger

	bySymbol  map[string]types.Token
	byAddress map[string]types.Token
	weth      *types.Token

	discoveredMutex sync.RWMutex
	discovered      map[string]types.Token
}

// NewRegistry builds the registry from the chain's token table.
//
// Parameters:
// - config: the chain configuration carrying the token table.
// - logger: the logger for logging events.
//
// Returns:
// - *Registry: the registry.
func NewRegistry(config *types.ChainConfig, logger *logrus.Logger) *Registry {
	r := &Registry{
		chainName:    config.Name,
		nativeSymbol: config.NativeSymbol,
		logger:       logger,
		bySymbol:     map[string]types.Token{},
		byAddress:    map[string]types.Token{},
		discovered:   map[string]types.Token{},
	}
	if r.nativeSymbol == "" {
		r.nativeSymbol = "ETH"
	}

	for _, token := range config.Tokens {
		r.bySymbol[strings.ToUpper(token.Symbol)] = token
		if !token.Native {
			r.byAddress[strings.ToLower(token.Address)] = token
		}
	}

	if _, ok := r.bySymbol[strings.ToUpper(r.nativeSymbol)]; !ok {
		r.bySymbol[strings.ToUpper(r.nativeSymbol)] = types.Token{
			Symbol:   r.nativeSymbol,
			Address:  types.NativeTokenAddress,
			Decimals: 18,
			Native:   true,
		}
	}

	if config.Contracts != nil && config.Contracts.WETH != "" {
		weth, ok := r.byAddress[strings.ToLower(config.Contracts.WETH)]
		if !ok {
			weth = types.Token{Symbol: "W" + r.nativeSymbol, Address: config.Contracts.WETH, Decimals: 18}
			r.byAddress[strings.ToLower(weth.Address)] = weth
		}
		r.weth = &weth
	}

	return r
}

// Resolve returns the token for a symbol or a 0x address. Unknown
// addresses resolve to an unlisted token with DefaultDecimals unless they
// were discovered earlier.
//
// Parameters:
// - symbolOrAddress: a symbol such as "usdc" or a 0x-prefixed address.
//
// Returns:
// - types.Token: the resolved token.
// - error: ErrUnknownToken for unknown symbols, an encoding error for malformed addresses.
func (r *Registry) Resolve(symbolOrAddress string) (types.Token, error) {
	s := strings.TrimSpace(symbolOrAddress)

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		address, err := codec.ParseAddress(s)
		if err != nil {
			return types.Token{}, err
		}
		if strings.EqualFold(address.Hex(), types.NativeTokenAddress) {
			return r.bySymbol[strings.ToUpper(r.nativeSymbol)], nil
		}
		if token, ok := r.Lookup(address.Hex()); ok {
			return token, nil
		}
		return types.Token{
			Symbol:   address.Hex(),
			Address:  address.Hex(),
			Decimals: DefaultDecimals,
		}, nil
	}

	if token, ok := r.bySymbol[strings.ToUpper(s)]; ok {
		return token, nil
	}

	r.discoveredMutex.RLock()
	defer r.discoveredMutex.RUnlock()
	for _, token := range r.discovered {
		if strings.EqualFold(token.Symbol, s) {
			return token, nil
		}
	}

	return types.Token{}, errors.Wrapf(dexerrors.ErrUnknownToken, "%q on %s", s, r.chainName)
}

// ResolveOnChain resolves like Resolve and reads unlisted addresses through
// Discover. A non-nil decimals replaces the decimals of an unlisted token and
// skips the on-chain read. A nil caller keeps DefaultDecimals.
//
// Parameters:
// - ctx: the context for managing the request.
// - caller: the contract reader, may be nil.
// - symbolOrAddress: a symbol or a 0x-prefixed address.
// - decimals: the caller's decimals for unlisted tokens, may be nil.
//
// Returns:
// - types.Token: the resolved token.
// - error: the Resolve errors.
func (r *Registry) ResolveOnChain(ctx context.Context, caller Caller, symbolOrAddress string, decimals *uint8) (types.Token, error) {
	token, err := r.Resolve(symbolOrAddress)
	if err != nil || token.Native || r.IsListed(token.Address) {
		return token, err
	}
	if decimals != nil {
		token.Decimals = *decimals
		return token, nil
	}
	if caller == nil {
		return token, nil
	}
	return r.Discover(ctx, caller, token.Address)
}

// ResolveForSwap resolves like ResolveOnChain but maps the native token to
// WETH. native reports whether the caller asked for the native token.
func (r *Registry) ResolveForSwap(ctx context.Context, caller Caller, symbolOrAddress string, decimals *uint8) (token types.Token, native bool, err error) {
	token, err = r.ResolveOnChain(ctx, caller, symbolOrAddress, decimals)
	if err != nil {
		return types.Token{}, false, err
	}
	if !token.Native {
		return token, false, nil
	}
	if r.weth == nil {
		return types.Token{}, false, errors.Wrapf(dexerrors.ErrSwapNotSupported, "no wrapped %s on %s", r.nativeSymbol, r.chainName)
	}
	return *r.weth, true, nil
}

// Lookup finds a listed or discovered token by address.
func (r *Registry) Lookup(address string) (types.Token, bool) {
	key := strings.ToLower(address)
	if token, ok := r.byAddress[key]; ok {
		return token, true
	}

	r.discoveredMutex.RLock()
	defer r.discoveredMutex.RUnlock()
	token, ok := r.discovered[key]
	return token, ok
}

// IsListed reports whether address is part of the static table.
func (r *Registry) IsListed(address string) bool {
	_, ok := r.byAddress[strings.ToLower(address)]
	return ok
}

// WETH returns the wrapped native token, if the chain has one.
func (r *Registry) WETH() (types.Token, bool) {
	if r.weth == nil {
		return types.Token{}, false
	}
	return *r.weth, true
}

// Native returns the native gas token.
func (r *Registry) Native() types.Token {
	return r.bySymbol[strings.ToUpper(r.nativeSymbol)]
}

// Tokens returns the listed ERC-20 tokens sorted by symbol.
func (r *Registry) Tokens() []types.Token {
	out := make([]types.Token, 0, len(r.byAddress))
	for _, token := range r.byAddress {
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Discover reads symbol() and decimals() of an unlisted token and caches
// the result. Unreadable decimals fall back to DefaultDecimals and an
// unreadable symbol to the address.
//
// Parameters:
// - ctx: the context for managing the request.
// - caller: the contract reader.
// - address: the token contract address.
//
// Returns:
// - types.Token: the discovered or cached token.
// - error: an error if the address is malformed.
func (r *Registry) Discover(ctx context.Context, caller Caller, address string) (types.Token, error) {
	parsed, err := codec.ParseAddress(address)
	if err != nil {
		return types.Token{}, err
	}
	if token, ok := r.Lookup(parsed.Hex()); ok {
		return token, nil
	}

	token := types.Token{
		Symbol:   parsed.Hex(),
		Address:  parsed.Hex(),
		Decimals: DefaultDecimals,
	}

	if out, err := caller.CallContract(ctx, parsed.Hex(), codec.EncodeDecimals()); err == nil {
		if v, err := codec.DecodeUint256Word(out, 0); err == nil && v.IsUint64() && v.Uint64() <= 255 {
			token.Decimals = uint8(v.Uint64())
		}
	} else {
		r.logger.WithFields(logrus.Fields{
			"chain": r.chainName,
			"token": parsed.Hex(),
		}).WithError(err).Warn("Failed to read decimals, assuming 18")
	}

	if out, err := caller.CallContract(ctx, parsed.Hex(), codec.EncodeSymbol()); err == nil {
		if symbol, err := codec.DecodeString(out); err == nil && symbol != "" {
			token.Symbol = symbol
		}
	}

	r.discoveredMutex.Lock()
	r.discovered[strings.ToLower(parsed.Hex())] = token
	r.discoveredMutex.Unlock()

	return token, nil
}
