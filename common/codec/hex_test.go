package codec

import (
	"math/big"
	"testing"

	"github.com/ClipFinance/dex-engine/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"prefixed", "0xdeadbeef", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"bare", "deadbeef", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"upper prefix", "0XFF", []byte{0xff}},
		{"odd length", "0x1a3", []byte{0x01, 0xa3}},
		{"zero quantity", "0x0", []byte{0x00}},
		{"empty", "0x", []byte{}},
		{"empty bare", "", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHex(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeHexRejectsGarbage(t *testing.T) {
	_, err := DecodeHex("0xzz")
	require.Error(t, err)

	var encErr *errors.EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestHexRoundTrip(t *testing.T) {
	for _, b := range [][]byte{{}, {0}, {0, 0, 1}, []byte("hello world"), make([]byte, 64)} {
		decoded, err := DecodeHex(EncodeHex(b))
		require.NoError(t, err)
		assert.Equal(t, b, decoded)
	}
}

func TestEncodeQuantity(t *testing.T) {
	assert.Equal(t, "0x0", EncodeQuantity(nil))
	assert.Equal(t, "0x0", EncodeQuantity(big.NewInt(0)))
	assert.Equal(t, "0x1", EncodeQuantity(big.NewInt(1)))
	assert.Equal(t, "0x5208", EncodeQuantity(big.NewInt(21000)))
	assert.Equal(t, "0x0", EncodeUint64Quantity(0))
	assert.Equal(t, "0x1f4", EncodeUint64Quantity(500))
}

func TestDecodeUint64(t *testing.T) {
	v, err := DecodeUint64("0x1f4")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), v)

	_, err = DecodeUint64("0x10000000000000000")
	assert.Error(t, err)

	q, err := DecodeQuantity("0x0de0b6b3a7640000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", q.String())
}
