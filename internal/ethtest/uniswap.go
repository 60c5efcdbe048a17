package ethtest

import (
	"math/big"
	"sync"

	"github.com/ClipFinance/dex-engine/common/codec"
)

const quoteGasEstimate = 120_000

type poolKey struct {
	in, out codec.Address
	fee     uint32
}

type pool struct {
	num, den int64
	reverts  bool
}

// Quoter is a simulated QuoterV2. Pools are directional: a rate set for
// in->out says nothing about out->in.
type Quoter struct {
	mu     sync.Mutex
	pools  map[poolKey]pool
	single int
	multi  int
}

// DeployQuoter registers a QuoterV2 at address.
func (n *Node) DeployQuoter(address codec.Address) *Quoter {
	q := &Quoter{pools: map[poolKey]pool{}}

	n.Handle(address, codec.SelectorQuoteExactInputSingle, func(_ codec.Address, data []byte, _ bool) ([]byte, error) {
		args := data[4:]
		in, _ := codec.DecodeAddressWord(args, 0)
		out, _ := codec.DecodeAddressWord(args, 1)
		amount, err := codec.DecodeUint256Word(args, 2)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		fee, _ := codec.DecodeUint256Word(args, 3)

		q.mu.Lock()
		q.single++
		q.mu.Unlock()

		amountOut, err := q.hop(in, out, uint32(fee.Uint64()), amount)
		if err != nil {
			return nil, err
		}
		return quoteResult(amountOut), nil
	})

	n.Handle(address, codec.SelectorQuoteExactInput, func(_ codec.Address, data []byte, _ bool) ([]byte, error) {
		args := data[4:]
		amount, err := codec.DecodeUint256Word(args, 1)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		length, err := codec.DecodeUint256Word(args, 2)
		if err != nil || len(args) < 3*codec.WordSize+int(length.Uint64()) {
			return nil, Revert("bad path")
		}
		path := args[3*codec.WordSize : 3*codec.WordSize+int(length.Uint64())]

		q.mu.Lock()
		q.multi++
		q.mu.Unlock()

		amountOut, err := q.path(path, amount)
		if err != nil {
			return nil, err
		}
		return quoteResult(amountOut), nil
	})

	return q
}

// SetPool makes in->out quotable at fee with out = in*num/den.
func (q *Quoter) SetPool(in, out codec.Address, fee uint32, num, den int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pools[poolKey{in, out, fee}] = pool{num: num, den: den}
}

// SetRevertingPool makes in->out exist at fee but revert on quote, the way
// a token with blocked sells behaves.
func (q *Quoter) SetRevertingPool(in, out codec.Address, fee uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pools[poolKey{in, out, fee}] = pool{reverts: true}
}

// Calls returns the number of single-hop and multi-hop quotes served.
func (q *Quoter) Calls() (single, multi int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.single, q.multi
}

func (q *Quoter) hop(in, out codec.Address, fee uint32, amount *big.Int) (*big.Int, error) {
	q.mu.Lock()
	p, ok := q.pools[poolKey{in, out, fee}]
	q.mu.Unlock()

	if !ok || p.reverts || p.den == 0 {
		return nil, Revert("SPL")
	}
	out2 := new(big.Int).Mul(amount, big.NewInt(p.num))
	return out2.Div(out2, big.NewInt(p.den)), nil
}

func (q *Quoter) path(path []byte, amount *big.Int) (*big.Int, error) {
	const hop = codec.AddressLength + 3
	if len(path) < codec.AddressLength+hop || (len(path)-codec.AddressLength)%hop != 0 {
		return nil, Revert("bad path")
	}
	for len(path) > codec.AddressLength {
		var in, out codec.Address
		copy(in[:], path[:codec.AddressLength])
		fee := uint32(path[20])<<16 | uint32(path[21])<<8 | uint32(path[22])
		copy(out[:], path[hop:hop+codec.AddressLength])

		next, err := q.hop(in, out, fee, amount)
		if err != nil {
			return nil, err
		}
		amount = next
		path = path[hop:]
	}
	return amount, nil
}

// quoteResult mirrors QuoterV2's (amountOut, sqrtPriceX96After,
// initializedTicksCrossed, gasEstimate) head.
func quoteResult(amountOut *big.Int) []byte {
	out := Word(amountOut)
	out = append(out, Word(big.NewInt(0))...)
	out = append(out, Word(big.NewInt(0))...)
	return append(out, Word(big.NewInt(quoteGasEstimate))...)
}

// DeployRouter registers a SwapRouter02 that accepts both exact-input
// entry points and returns the quoter's output.
func (n *Node) DeployRouter(address codec.Address, q *Quoter) {
	n.Handle(address, codec.SelectorExactInputSingle, func(_ codec.Address, data []byte, _ bool) ([]byte, error) {
		args := data[4:]
		in, _ := codec.DecodeAddressWord(args, 0)
		out, _ := codec.DecodeAddressWord(args, 1)
		fee, err := codec.DecodeUint256Word(args, 2)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		amount, err := codec.DecodeUint256Word(args, 4)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		minOut, err := codec.DecodeUint256Word(args, 5)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		amountOut, err := q.hop(in, out, uint32(fee.Uint64()), amount)
		if err != nil {
			return nil, err
		}
		if amountOut.Cmp(minOut) < 0 {
			return nil, Revert("Too little received")
		}
		return Word(amountOut), nil
	})

	n.Handle(address, codec.SelectorExactInput, func(_ codec.Address, data []byte, _ bool) ([]byte, error) {
		args := data[4:]
		amount, err := codec.DecodeUint256Word(args, 3)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		minOut, err := codec.DecodeUint256Word(args, 4)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		length, err := codec.DecodeUint256Word(args, 5)
		if err != nil || len(args) < 6*codec.WordSize+int(length.Uint64()) {
			return nil, Revert("bad path")
		}
		amountOut, err := q.path(args[6*codec.WordSize:6*codec.WordSize+int(length.Uint64())], amount)
		if err != nil {
			return nil, err
		}
		if amountOut.Cmp(minOut) < 0 {
			return nil, Revert("Too little received")
		}
		return Word(amountOut), nil
	})
}
