package codec

import (
	"encoding/hex"
	"strings"

	"github.com/ClipFinance/dex-engine/common/errors"
)

// AddressLength is the size of an account address in bytes.
const AddressLength = 20

// Address is a 20-byte account or contract address.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed, 40 hex character address. Case is not
// validated against the checksum.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimSpace(s)
	if !IsHexAddress(s) {
		return a, errors.Encoding("address", s, "must be 0x followed by 40 hex characters")
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return a, errors.Encoding("address", s, err.Error())
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress for compile-time constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsHexAddress reports whether s is syntactically an address.
func IsHexAddress(s string) bool {
	if len(s) != 2+2*AddressLength || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	for _, c := range s[2:] {
		if !isHexChar(c) {
			return false
		}
	}
	return true
}

// AddressFromPublicKey derives the address of an uncompressed secp256k1
// public key: the last 20 bytes of keccak256(x || y). Both the 65-byte form
// with the 0x04 marker and the bare 64-byte form are accepted.
func AddressFromPublicKey(pub []byte) (Address, error) {
	var a Address
	switch {
	case len(pub) == 65 && pub[0] == 0x04:
		pub = pub[1:]
	case len(pub) == 64:
	default:
		return a, errors.Encoding("public key", "", "expected 64 or 65 uncompressed bytes")
	}
	copy(a[:], Keccak256(pub)[12:])
	return a, nil
}

// Hex returns the EIP-55 checksummed form.
func (a Address) Hex() string {
	return ChecksumAddress(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// Lower returns the all-lowercase 0x form used in JSON-RPC requests.
func (a Address) Lower() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns the 20 raw bytes.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Topic returns the address left-padded to a 32-byte log topic.
func (a Address) Topic() string {
	return "0x" + strings.Repeat("00", 32-AddressLength) + hex.EncodeToString(a[:])
}

// AddressFromTopic takes the low 20 bytes of an indexed address topic.
func AddressFromTopic(topic string) (Address, error) {
	var a Address
	b, err := DecodeHex(topic)
	if err != nil {
		return a, err
	}
	if len(b) != 32 {
		return a, errors.Encoding("topic", topic, "must be 32 bytes")
	}
	copy(a[:], b[32-AddressLength:])
	return a, nil
}

// ChecksumAddress applies EIP-55: each hex letter is uppercased when the
// matching nibble of keccak256(lowercase hex) is 8 or more.
func ChecksumAddress(b []byte) string {
	lower := hex.EncodeToString(b)
	hash := Keccak256([]byte(lower))

	out := make([]byte, 2, 2+len(lower))
	copy(out, "0x")
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func isHexChar(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
