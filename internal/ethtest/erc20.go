package ethtest

import (
	"math/big"
	"sync"

	"github.com/ClipFinance/dex-engine/common/codec"
)

// ERC20 is a simulated token contract.
type ERC20 struct {
	mu         sync.Mutex
	balances   map[codec.Address]*big.Int
	allowances map[[2]codec.Address]*big.Int
	approvals  int
}

// DeployERC20 registers a standard token at address.
func (n *Node) DeployERC20(address codec.Address, name, symbol string, decimals uint8, supply *big.Int) *ERC20 {
	t := &ERC20{
		balances:   map[codec.Address]*big.Int{},
		allowances: map[[2]codec.Address]*big.Int{},
	}

	n.Handle(address, codec.SelectorName, constant(String(name)))
	n.Handle(address, codec.SelectorSymbol, constant(String(symbol)))
	n.Handle(address, codec.SelectorDecimals, constant(Word(big.NewInt(int64(decimals)))))
	n.Handle(address, codec.SelectorTotalSupply, constant(Word(supply)))

	n.Handle(address, codec.SelectorBalanceOf, func(_ codec.Address, data []byte, _ bool) ([]byte, error) {
		holder, err := codec.DecodeAddressWord(data[4:], 0)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		return Word(t.Balance(holder)), nil
	})

	n.Handle(address, codec.SelectorAllowance, func(_ codec.Address, data []byte, _ bool) ([]byte, error) {
		owner, err := codec.DecodeAddressWord(data[4:], 0)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		spender, err := codec.DecodeAddressWord(data[4:], 1)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		return Word(t.Allowance(owner, spender)), nil
	})

	n.Handle(address, codec.SelectorApprove, func(from codec.Address, data []byte, commit bool) ([]byte, error) {
		spender, err := codec.DecodeAddressWord(data[4:], 0)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		amount, err := codec.DecodeUint256Word(data[4:], 1)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		if commit {
			t.mu.Lock()
			t.allowances[[2]codec.Address{from, spender}] = amount
			t.approvals++
			t.mu.Unlock()
		}
		return Word(big.NewInt(1)), nil
	})

	n.Handle(address, codec.SelectorTransfer, func(from codec.Address, data []byte, commit bool) ([]byte, error) {
		to, err := codec.DecodeAddressWord(data[4:], 0)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		amount, err := codec.DecodeUint256Word(data[4:], 1)
		if err != nil {
			return nil, Revert("bad calldata")
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		balance := t.balanceLocked(from)
		if balance.Cmp(amount) < 0 {
			return nil, Revert("transfer amount exceeds balance")
		}
		if commit {
			t.balances[from] = new(big.Int).Sub(balance, amount)
			t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
		}
		return Word(big.NewInt(1)), nil
	})

	return t
}

// SetBalance sets the token balance of holder.
func (t *ERC20) SetBalance(holder codec.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[holder] = new(big.Int).Set(amount)
}

// Balance returns the token balance of holder.
func (t *ERC20) Balance(holder codec.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(holder)
}

func (t *ERC20) balanceLocked(holder codec.Address) *big.Int {
	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// SetAllowance sets the allowance of owner towards spender.
func (t *ERC20) SetAllowance(owner, spender codec.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[[2]codec.Address{owner, spender}] = new(big.Int).Set(amount)
}

// Allowance returns the allowance of owner towards spender.
func (t *ERC20) Allowance(owner, spender codec.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.allowances[[2]codec.Address{owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// Approvals returns how many approve calls were applied.
func (t *ERC20) Approvals() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.approvals
}

// SetOwner adds an owner() function returning owner.
func (n *Node) SetOwner(token, owner codec.Address) {
	n.Handle(token, codec.SelectorOwner, constant(codec.EncodeAddressWord(owner)))
}

func constant(out []byte) CallFunc {
	return func(codec.Address, []byte, bool) ([]byte, error) {
		return out, nil
	}
}

// Word encodes v as a single ABI word.
func Word(v *big.Int) []byte {
	w, err := codec.ToUint256(v)
	if err != nil {
		panic(err)
	}
	return w[:]
}

// String ABI-encodes a dynamic string return value.
func String(s string) []byte {
	out := Word(big.NewInt(32))
	out = append(out, Word(big.NewInt(int64(len(s))))...)
	padded := make([]byte, (len(s)+31)/32*32)
	copy(padded, s)
	return append(out, padded...)
}
