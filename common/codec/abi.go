package codec

import (
	"math/big"
	"unicode/utf8"

	"github.com/ClipFinance/dex-engine/common/errors"
)

// WordSize is the ABI slot width.
const WordSize = 32

// Function selectors of the fixed contract surface.
var (
	SelectorBalanceOf             = Selector("balanceOf(address)")
	SelectorTransfer              = Selector("transfer(address,uint256)")
	SelectorApprove               = Selector("approve(address,uint256)")
	SelectorAllowance             = Selector("allowance(address,address)")
	SelectorName                  = Selector("name()")
	SelectorSymbol                = Selector("symbol()")
	SelectorDecimals              = Selector("decimals()")
	SelectorTotalSupply           = Selector("totalSupply()")
	SelectorOwner                 = Selector("owner()")
	SelectorQuoteExactInputSingle = Selector("quoteExactInputSingle((address,address,uint256,uint24,uint160))")
	SelectorQuoteExactInput       = Selector("quoteExactInput(bytes,uint256)")
	SelectorExactInputSingle      = Selector("exactInputSingle((address,address,uint24,address,uint256,uint256,uint160))")
	SelectorExactInput            = Selector("exactInput((bytes,address,uint256,uint256))")
)

// TransferEventTopic is keccak256("Transfer(address,address,uint256)").
var TransferEventTopic = EventTopic("Transfer(address,address,uint256)")

// EncodeAddressWord left-pads an address to 32 bytes.
func EncodeAddressWord(a Address) []byte {
	word := make([]byte, WordSize)
	copy(word[12:], a[:])
	return word
}

// EncodeUint256Word encodes a non-negative integer that fits 256 bits.
func EncodeUint256Word(v *big.Int) ([]byte, error) {
	word, err := ToUint256(v)
	if err != nil {
		return nil, err
	}
	return word[:], nil
}

// EncodeUint24Word encodes a fee tier. Values above 2^24-1 are truncated to
// their low 24 bits, matching how the pools read them.
func EncodeUint24Word(v uint32) []byte {
	word := make([]byte, WordSize)
	word[29] = byte(v >> 16)
	word[30] = byte(v >> 8)
	word[31] = byte(v)
	return word
}

func encodeUint64Word(v uint64) []byte {
	word := make([]byte, WordSize)
	new(big.Int).SetUint64(v).FillBytes(word)
	return word
}

// encodeDynamicBytes writes the length word followed by b padded to a
// 32-byte boundary.
func encodeDynamicBytes(b []byte) []byte {
	out := encodeUint64Word(uint64(len(b)))
	out = append(out, b...)
	if pad := (WordSize - len(b)%WordSize) % WordSize; pad > 0 {
		out = append(out, make([]byte, pad)...)
	}
	return out
}

func call(sel [4]byte, words ...[]byte) []byte {
	out := append([]byte{}, sel[:]...)
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

// EncodeBalanceOf builds ERC-20 balanceOf(owner).
func EncodeBalanceOf(owner Address) []byte {
	return call(SelectorBalanceOf, EncodeAddressWord(owner))
}

// EncodeTransfer builds ERC-20 transfer(to, amount).
func EncodeTransfer(to Address, amount *big.Int) ([]byte, error) {
	amountWord, err := EncodeUint256Word(amount)
	if err != nil {
		return nil, err
	}
	return call(SelectorTransfer, EncodeAddressWord(to), amountWord), nil
}

// EncodeApprove builds ERC-20 approve(spender, amount).
func EncodeApprove(spender Address, amount *big.Int) ([]byte, error) {
	amountWord, err := EncodeUint256Word(amount)
	if err != nil {
		return nil, err
	}
	return call(SelectorApprove, EncodeAddressWord(spender), amountWord), nil
}

// EncodeAllowance builds ERC-20 allowance(owner, spender).
func EncodeAllowance(owner, spender Address) []byte {
	return call(SelectorAllowance, EncodeAddressWord(owner), EncodeAddressWord(spender))
}

// EncodeName builds name().
func EncodeName() []byte { return call(SelectorName) }

// EncodeSymbol builds symbol().
func EncodeSymbol() []byte { return call(SelectorSymbol) }

// EncodeDecimals builds decimals().
func EncodeDecimals() []byte { return call(SelectorDecimals) }

// EncodeTotalSupply builds totalSupply().
func EncodeTotalSupply() []byte { return call(SelectorTotalSupply) }

// EncodeOwner builds owner(), the Ownable getter.
func EncodeOwner() []byte { return call(SelectorOwner) }

// EncodeQuoteExactInputSingle builds QuoterV2.quoteExactInputSingle. The
// struct has only static fields so it is encoded inline; the price limit is
// zero (no limit).
func EncodeQuoteExactInputSingle(tokenIn, tokenOut Address, amountIn *big.Int, fee uint32) ([]byte, error) {
	amountWord, err := EncodeUint256Word(amountIn)
	if err != nil {
		return nil, err
	}
	return call(SelectorQuoteExactInputSingle,
		EncodeAddressWord(tokenIn),
		EncodeAddressWord(tokenOut),
		amountWord,
		EncodeUint24Word(fee),
		make([]byte, WordSize),
	), nil
}

// EncodeQuoteExactInput builds QuoterV2.quoteExactInput(bytes path, uint256 amountIn).
func EncodeQuoteExactInput(path []byte, amountIn *big.Int) ([]byte, error) {
	amountWord, err := EncodeUint256Word(amountIn)
	if err != nil {
		return nil, err
	}
	return call(SelectorQuoteExactInput,
		encodeUint64Word(2*WordSize),
		amountWord,
		encodeDynamicBytes(path),
	), nil
}

// EncodeExactInputSingle builds SwapRouter02.exactInputSingle.
func EncodeExactInputSingle(tokenIn, tokenOut Address, fee uint32, recipient Address, amountIn, amountOutMinimum *big.Int) ([]byte, error) {
	amountWord, err := EncodeUint256Word(amountIn)
	if err != nil {
		return nil, err
	}
	minWord, err := EncodeUint256Word(amountOutMinimum)
	if err != nil {
		return nil, err
	}
	return call(SelectorExactInputSingle,
		EncodeAddressWord(tokenIn),
		EncodeAddressWord(tokenOut),
		EncodeUint24Word(fee),
		EncodeAddressWord(recipient),
		amountWord,
		minWord,
		make([]byte, WordSize),
	), nil
}

// EncodeExactInput builds SwapRouter02.exactInput. The tuple holds a dynamic
// field, so the head is a single offset word (0x20) to the tuple, whose own
// head starts with the offset of the path (4 words) relative to the tuple.
func EncodeExactInput(path []byte, recipient Address, amountIn, amountOutMinimum *big.Int) ([]byte, error) {
	amountWord, err := EncodeUint256Word(amountIn)
	if err != nil {
		return nil, err
	}
	minWord, err := EncodeUint256Word(amountOutMinimum)
	if err != nil {
		return nil, err
	}
	return call(SelectorExactInput,
		encodeUint64Word(WordSize),
		encodeUint64Word(4*WordSize),
		EncodeAddressWord(recipient),
		amountWord,
		minWord,
		encodeDynamicBytes(path),
	), nil
}

// BuildPath encodes a Uniswap V3 multi-hop path: token, fee (3 bytes
// big-endian), token, fee, ..., token.
func BuildPath(tokens []Address, fees []uint32) ([]byte, error) {
	if len(tokens) < 2 || len(fees) != len(tokens)-1 {
		return nil, errors.Encoding("path", "", "need n tokens and n-1 fees, n >= 2")
	}
	path := make([]byte, 0, len(tokens)*AddressLength+len(fees)*3)
	for i, token := range tokens {
		path = append(path, token[:]...)
		if i < len(fees) {
			if fees[i] > 0xffffff {
				return nil, errors.Encoding("fee tier", "", "exceeds uint24")
			}
			path = append(path, byte(fees[i]>>16), byte(fees[i]>>8), byte(fees[i]))
		}
	}
	return path, nil
}

// DecodeUint256Word reads the index-th 32-byte word of an ABI response.
func DecodeUint256Word(data []byte, index int) (*big.Int, error) {
	start := index * WordSize
	if index < 0 || len(data) < start+WordSize {
		return nil, errors.Encoding("abi response", EncodeHex(data), "shorter than expected")
	}
	return new(big.Int).SetBytes(data[start : start+WordSize]), nil
}

// DecodeAddressWord reads the index-th word as an address.
func DecodeAddressWord(data []byte, index int) (Address, error) {
	var a Address
	start := index * WordSize
	if index < 0 || len(data) < start+WordSize {
		return a, errors.Encoding("abi response", EncodeHex(data), "shorter than expected")
	}
	copy(a[:], data[start+12:start+WordSize])
	return a, nil
}

// DecodeString decodes an ABI string return value. Responses shorter than
// two words, or whose offset points outside the data, are treated as a
// bytes32 string with zero bytes dropped, which covers tokens such as MKR.
func DecodeString(data []byte) (string, error) {
	if len(data) < 2*WordSize {
		return bytes32String(data)
	}
	offset := new(big.Int).SetBytes(data[:WordSize])
	if !offset.IsUint64() || offset.Uint64() > uint64(len(data)-WordSize) {
		return bytes32String(data[:WordSize])
	}
	start := int(offset.Uint64())
	length := new(big.Int).SetBytes(data[start : start+WordSize])
	if !length.IsUint64() || length.Uint64() > uint64(len(data)-start-WordSize) {
		return "", errors.Encoding("abi string", "", "length exceeds response")
	}
	s := data[start+WordSize : start+WordSize+int(length.Uint64())]
	if !utf8.Valid(s) {
		return "", errors.Encoding("abi string", "", "invalid utf-8")
	}
	return string(s), nil
}

func bytes32String(data []byte) (string, error) {
	out := make([]byte, 0, len(data))
	for _, c := range data {
		if c != 0 {
			out = append(out, c)
		}
	}
	if !utf8.Valid(out) {
		return "", errors.Encoding("abi string", "", "invalid utf-8")
	}
	return string(out), nil
}
