package codec

import (
	"math/big"

	"github.com/ClipFinance/dex-engine/common/errors"
)

const (
	rlpShortString = 0x80
	rlpLongString  = 0xb7
	rlpShortList   = 0xc0
	rlpLongList    = 0xf7
	rlpMaxShort    = 55
)

// EncodeRLPBytes encodes a byte string.
func EncodeRLPBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < rlpShortString {
		return []byte{b[0]}
	}
	return append(rlpHeader(rlpShortString, rlpLongString, len(b)), b...)
}

// EncodeRLPUint encodes an integer as its minimal big-endian byte string.
// Zero is the empty string.
func EncodeRLPUint(v uint64) []byte {
	return EncodeRLPBytes(minimalBytes(v))
}

// EncodeRLPBigInt encodes a non-negative integer. A nil value encodes as zero.
func EncodeRLPBigInt(v *big.Int) []byte {
	if v == nil {
		return EncodeRLPBytes(nil)
	}
	return EncodeRLPBytes(v.Bytes())
}

// EncodeRLPList wraps already-encoded items into a list.
func EncodeRLPList(items ...[]byte) []byte {
	size := 0
	for _, item := range items {
		size += len(item)
	}
	out := rlpHeader(rlpShortList, rlpLongList, size)
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func rlpHeader(short, long byte, size int) []byte {
	if size <= rlpMaxShort {
		return []byte{short + byte(size)}
	}
	lenBytes := minimalBytes(uint64(size))
	return append([]byte{long + byte(len(lenBytes))}, lenBytes...)
}

func minimalBytes(v uint64) []byte {
	var b []byte
	for v > 0 {
		b = append([]byte{byte(v)}, b...)
		v >>= 8
	}
	return b
}

// RLPItem is a decoded RLP value: either a byte string or a list.
type RLPItem struct {
	IsList bool
	Bytes  []byte
	List   []RLPItem
}

// DecodeRLP decodes exactly one item from b. Trailing data and
// non-canonical encodings are rejected.
func DecodeRLP(b []byte) (RLPItem, error) {
	item, rest, err := decodeRLPItem(b)
	if err != nil {
		return RLPItem{}, err
	}
	if len(rest) != 0 {
		return RLPItem{}, errors.Encoding("rlp", "", "trailing bytes after item")
	}
	return item, nil
}

func decodeRLPItem(b []byte) (RLPItem, []byte, error) {
	if len(b) == 0 {
		return RLPItem{}, nil, errors.Encoding("rlp", "", "unexpected end of input")
	}
	prefix := b[0]
	switch {
	case prefix < rlpShortString:
		return RLPItem{Bytes: []byte{prefix}}, b[1:], nil

	case prefix <= rlpLongString:
		size := int(prefix - rlpShortString)
		if len(b) < 1+size {
			return RLPItem{}, nil, errors.Encoding("rlp", "", "string exceeds input")
		}
		payload := b[1 : 1+size]
		if size == 1 && payload[0] < rlpShortString {
			return RLPItem{}, nil, errors.Encoding("rlp", "", "non-canonical single byte")
		}
		return RLPItem{Bytes: append([]byte{}, payload...)}, b[1+size:], nil

	case prefix < rlpShortList:
		payload, rest, err := decodeLongPayload(b, prefix-rlpLongString)
		if err != nil {
			return RLPItem{}, nil, err
		}
		return RLPItem{Bytes: append([]byte{}, payload...)}, rest, nil

	case prefix <= rlpLongList:
		size := int(prefix - rlpShortList)
		if len(b) < 1+size {
			return RLPItem{}, nil, errors.Encoding("rlp", "", "list exceeds input")
		}
		list, err := decodeRLPList(b[1 : 1+size])
		if err != nil {
			return RLPItem{}, nil, err
		}
		return RLPItem{IsList: true, List: list}, b[1+size:], nil

	default:
		payload, rest, err := decodeLongPayload(b, prefix-rlpLongList)
		if err != nil {
			return RLPItem{}, nil, err
		}
		list, err := decodeRLPList(payload)
		if err != nil {
			return RLPItem{}, nil, err
		}
		return RLPItem{IsList: true, List: list}, rest, nil
	}
}

func decodeLongPayload(b []byte, lenOfLen byte) ([]byte, []byte, error) {
	n := int(lenOfLen)
	if n > 8 {
		return nil, nil, errors.Encoding("rlp", "", "length of length too large")
	}
	if len(b) < 1+n {
		return nil, nil, errors.Encoding("rlp", "", "length exceeds input")
	}
	if b[1] == 0 {
		return nil, nil, errors.Encoding("rlp", "", "length has leading zero")
	}
	size := 0
	for _, c := range b[1 : 1+n] {
		size = size<<8 | int(c)
	}
	if size < 0 {
		return nil, nil, errors.Encoding("rlp", "", "length overflows")
	}
	if size <= rlpMaxShort {
		return nil, nil, errors.Encoding("rlp", "", "long form used for short payload")
	}
	if size > len(b)-1-n {
		return nil, nil, errors.Encoding("rlp", "", "payload exceeds input")
	}
	return b[1+n : 1+n+size], b[1+n+size:], nil
}

func decodeRLPList(payload []byte) ([]RLPItem, error) {
	list := []RLPItem{}
	for len(payload) > 0 {
		item, rest, err := decodeRLPItem(payload)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
		payload = rest
	}
	return list, nil
}
