package codec

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodeHex returns the 0x-prefixed lowercase hex form of b.
func EncodeHex(b []byte) string {
	return hexutil.Encode(b)
}

// DecodeHex decodes a hex string with or without the 0x prefix.
// Odd-length input is left-padded with a zero nibble, since nodes return
// minimal quantities such as "0x0" or "0x1a3". Empty input decodes to an
// empty slice.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if raw == "" {
		return []byte{}, nil
	}
	if len(raw)%2 != 0 {
		raw = "0" + raw
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.Encoding("hex", s, err.Error())
	}
	return b, nil
}

// EncodeQuantity returns the canonical JSON-RPC quantity form of v ("0x0" for zero).
func EncodeQuantity(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// EncodeUint64Quantity is EncodeQuantity for a uint64.
func EncodeUint64Quantity(v uint64) string {
	return hexutil.EncodeUint64(v)
}

// DecodeQuantity parses a hex quantity into a non-negative integer.
func DecodeQuantity(s string) (*big.Int, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// DecodeUint64 parses a hex quantity that must fit into 64 bits.
func DecodeUint64(s string) (uint64, error) {
	v, err := DecodeQuantity(s)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Encoding("quantity", s, "overflows uint64")
	}
	return v.Uint64(), nil
}
