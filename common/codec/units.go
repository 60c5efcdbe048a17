package codec

import (
	"math/big"
	"strings"

	"github.com/ClipFinance/dex-engine/common/errors"
)

// MaxUint256 is 2^256 - 1, the largest value an EVM word can hold.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseUnits converts a human decimal string into raw token units.
// "1.5" with 18 decimals yields 1500000000000000000. More fractional digits
// than decimals, signs, exponents and values above 2^256-1 are rejected.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, errors.Encoding("amount", amount, "empty")
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if hasDot && strings.Contains(fracPart, ".") {
		return nil, errors.Encoding("amount", amount, "more than one decimal point")
	}
	if intPart == "" && fracPart == "" {
		return nil, errors.Encoding("amount", amount, "no digits")
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return nil, errors.Encoding("amount", amount, "must be a plain decimal number")
	}
	if len(fracPart) > int(decimals) {
		return nil, errors.Encoding("amount", amount, "too many decimal places for token")
	}

	digits := intPart + fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(big.Int), nil
	}

	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, errors.Encoding("amount", amount, "not a number")
	}
	if raw.Cmp(MaxUint256) > 0 {
		return nil, errors.Encoding("amount", amount, "exceeds uint256")
	}
	return raw, nil
}

// FormatUnits renders raw units as a decimal string with trailing
// fractional zeros trimmed.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}
	digits := new(big.Int).Abs(raw).String()
	if decimals > 0 {
		if len(digits) <= int(decimals) {
			digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
		}
		cut := len(digits) - int(decimals)
		intPart, fracPart := digits[:cut], strings.TrimRight(digits[cut:], "0")
		digits = intPart
		if fracPart != "" {
			digits += "." + fracPart
		}
	}
	if raw.Sign() < 0 {
		return "-" + digits
	}
	return digits
}

// AmountToRaw is ParseUnits returning the base-10 digit string.
func AmountToRaw(amount string, decimals uint8) (string, error) {
	raw, err := ParseUnits(amount, decimals)
	if err != nil {
		return "", err
	}
	return raw.String(), nil
}

// RawToAmount decodes a big-endian hex value (as returned by eth_call or
// eth_getBalance) and formats it with the given decimals.
func RawToAmount(rawHex string, decimals uint8) (string, error) {
	b, err := DecodeHex(rawHex)
	if err != nil {
		return "", err
	}
	if len(b) > 32 {
		b = b[:32]
	}
	return FormatUnits(new(big.Int).SetBytes(b), decimals), nil
}

// NormalizeAmount returns the canonical form of a decimal string: leading
// integer zeros and trailing fractional zeros removed.
func NormalizeAmount(amount string) string {
	intPart, fracPart, _ := strings.Cut(strings.TrimSpace(amount), ".")
	intPart = strings.TrimLeft(intPart, "0")
	fracPart = strings.TrimRight(fracPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// ToUint256 returns v as a 32-byte big-endian word.
func ToUint256(v *big.Int) ([32]byte, error) {
	var word [32]byte
	if v == nil {
		return word, nil
	}
	if v.Sign() < 0 {
		return word, errors.Encoding("uint256", v.String(), "negative")
	}
	if v.BitLen() > 256 {
		return word, errors.Encoding("uint256", v.String(), "exceeds 256 bits")
	}
	v.FillBytes(word[:])
	return word, nil
}

// FromUint256 reads a big-endian word (or any shorter big-endian slice).
func FromUint256(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
