package evm

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DeadAddress is the conventional burn address owners renounce to.
var DeadAddress = codec.MustParseAddress("0x000000000000000000000000000000000000dEaD")

// IsRenounced reports whether owner is the zero or the dead address.
func IsRenounced(owner codec.Address) bool {
	return owner.IsZero() || owner == DeadAddress
}

// CallContract performs a read-only eth_call against the latest block.
func (e *evm) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	client, err := e.getClient()
	if err != nil {
		return nil, err
	}
	return client.CallContract(ctx, to, data)
}

// GetCode returns the bytecode deployed at address.
func (e *evm) GetCode(ctx context.Context, address string) ([]byte, error) {
	client, err := e.getClient()
	if err != nil {
		return nil, err
	}
	return client.GetCode(ctx, address)
}

// TokenInfo reads the on-chain metadata of a token contract. The reads run
// concurrently and each failure only marks its field as unreadable.
// Decimals default to 18 when decimals() cannot be read.
//
// Parameters:
// - ctx: the context for managing the request.
// - token: a symbol or a contract address.
//
// Returns:
// - *types.TokenInfo: the metadata.
// - error: an error if token does not resolve to a contract address or the bytecode cannot be read.
func (e *evm) TokenInfo(ctx context.Context, token string) (*types.TokenInfo, error) {
	resolved, err := e.registry.Resolve(token)
	if err != nil {
		return nil, err
	}
	if resolved.Native {
		return nil, dexerrors.Encoding("token", token, "native token has no contract")
	}
	address, err := codec.ParseAddress(resolved.Address)
	if err != nil {
		return nil, err
	}

	code, err := e.GetCode(ctx, address.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get code")
	}

	info := &types.TokenInfo{
		Network:  e.config.Name,
		Address:  address.Hex(),
		Decimals: 18,
		CodeSize: len(code),
		Explorer: e.config.AddressURL(address.Hex()),
	}
	if len(code) == 0 {
		return info, nil
	}

	var mu sync.Mutex
	unreadable := func(field string) {
		mu.Lock()
		info.Unreadable = append(info.Unreadable, field)
		mu.Unlock()
	}
	read := func(ctx context.Context, field string, data []byte, apply func([]byte) error) func() error {
		return func() error {
			out, err := e.CallContract(ctx, address.Hex(), data)
			if err == nil {
				mu.Lock()
				err = apply(out)
				mu.Unlock()
			}
			if err != nil {
				unreadable(field)
			}
			return nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(read(gctx, "name", codec.EncodeName(), func(out []byte) (err error) {
		info.Name, err = codec.DecodeString(out)
		return err
	}))
	g.Go(read(gctx, "symbol", codec.EncodeSymbol(), func(out []byte) (err error) {
		info.Symbol, err = codec.DecodeString(out)
		return err
	}))
	g.Go(read(gctx, "decimals", codec.EncodeDecimals(), func(out []byte) error {
		v, err := codec.DecodeUint256Word(out, 0)
		if err != nil {
			return err
		}
		if !v.IsUint64() || v.Uint64() > 255 {
			return errors.New("decimals out of range")
		}
		info.Decimals = uint8(v.Uint64())
		info.DecimalsKnown = true
		return nil
	}))
	g.Go(read(gctx, "totalSupply", codec.EncodeTotalSupply(), func(out []byte) (err error) {
		info.TotalSupply, err = codec.DecodeUint256Word(out, 0)
		return err
	}))
	g.Go(read(gctx, "owner", codec.EncodeOwner(), func(out []byte) error {
		owner, err := codec.DecodeAddressWord(out, 0)
		if err != nil {
			return err
		}
		info.Owner = owner.Hex()
		info.OwnerRenounced = IsRenounced(owner)
		return nil
	}))
	g.Go(func() error {
		balance, err := e.GetTokenBalance(gctx, address.Hex(), "")
		if err != nil {
			unreadable("balance")
			return nil
		}
		mu.Lock()
		info.ContractETH = balance
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(info.Unreadable)
	if info.ContractETH == nil {
		info.ContractETH = new(big.Int)
	}
	return info, nil
}
