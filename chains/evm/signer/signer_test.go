package signer

import (
	"math/big"
	"testing"

	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hardhat's first development account.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := codec.DecodeHex(testKeyHex)
	require.NoError(t, err)
	return key
}

func sampleTx() *UnsignedTx {
	return &UnsignedTx{
		ChainID:              1,
		Nonce:                9,
		MaxPriorityFeePerGas: big.NewInt(1_500_000_000),
		MaxFeePerGas:         big.NewInt(41_500_000_000),
		Gas:                  65000,
		To:                   codec.MustParseAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Value:                big.NewInt(0),
		Data:                 []byte{0xa9, 0x05, 0x9c, 0xbb},
	}
}

func TestAddressFromKey(t *testing.T) {
	address, err := AddressFromKey(testKey(t))
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", address.Hex())
}

func TestSigningPayloadMatchesGeth(t *testing.T) {
	tx := sampleTx()
	to := common.Address(tx.To)
	gethTx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     tx.Nonce,
		GasTipCap: tx.MaxPriorityFeePerGas,
		GasFeeCap: tx.MaxFeePerGas,
		Gas:       tx.Gas,
		To:        &to,
		Value:     tx.Value,
		Data:      tx.Data,
	})

	gethSigner := ethtypes.LatestSignerForChainID(big.NewInt(1))
	assert.Equal(t, gethSigner.Hash(gethTx).Bytes(), tx.SigningHash())
	assert.Equal(t, byte(TxTypeEIP1559), tx.SigningPayload()[0])
}

func TestSignTxMatchesGeth(t *testing.T) {
	tx := sampleTx()

	var signed *SignedTx
	err := WithKey(testKey(t), func(s Signer) error {
		var err error
		signed, err = s.SignTx(tx)
		return err
	})
	require.NoError(t, err)

	privateKey, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	to := common.Address(tx.To)
	gethTx, err := ethtypes.SignNewTx(privateKey, ethtypes.LatestSignerForChainID(big.NewInt(1)), &ethtypes.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     tx.Nonce,
		GasTipCap: tx.MaxPriorityFeePerGas,
		GasFeeCap: tx.MaxFeePerGas,
		Gas:       tx.Gas,
		To:        &to,
		Value:     tx.Value,
		Data:      tx.Data,
	})
	require.NoError(t, err)

	want, err := gethTx.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, want, signed.Raw)
	assert.Equal(t, gethTx.Hash().Hex(), signed.Hash)
	assert.LessOrEqual(t, signed.V, byte(1))

	decoded := new(ethtypes.Transaction)
	require.NoError(t, decoded.UnmarshalBinary(signed.Raw))
	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(1)), decoded)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", sender.Hex())
}

func TestSignTxMinimalSignatureValues(t *testing.T) {
	for nonce := uint64(0); nonce < 64; nonce++ {
		tx := sampleTx()
		tx.Nonce = nonce

		err := WithKey(testKey(t), func(s Signer) error {
			signed, err := s.SignTx(tx)
			if err != nil {
				return err
			}
			if len(signed.R) > 0 && signed.R[0] == 0 || len(signed.S) > 0 && signed.S[0] == 0 {
				return errors.New("signature value has a leading zero")
			}
			item, err := codec.DecodeRLP(signed.Raw[1:])
			if err != nil {
				return err
			}
			if len(item.List) != 12 {
				return errors.Errorf("expected 12 fields, got %d", len(item.List))
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestWithKeyZeroizes(t *testing.T) {
	key := testKey(t)
	require.NoError(t, WithKey(key, func(Signer) error { return nil }))
	assert.Equal(t, make([]byte, 32), key)

	key = testKey(t)
	failure := errors.New("frame failed")
	err := WithKey(key, func(Signer) error { return failure })
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, make([]byte, 32), key)
}

func TestWithKeyRejectsInvalidKey(t *testing.T) {
	called := false
	err := WithKey(make([]byte, 32), func(Signer) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)

	err = WithKey([]byte{1, 2, 3}, func(Signer) error { return nil })
	assert.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	key, address, err := GenerateKey()
	require.NoError(t, err)
	require.Len(t, key, 32)

	derived, err := AddressFromKey(key)
	require.NoError(t, err)
	assert.Equal(t, address, derived)
	assert.NotEqual(t, make([]byte, 32), key)
}

func TestPersonalSign(t *testing.T) {
	err := WithKey(testKey(t), func(s Signer) error {
		sig, err := s.Sign([]byte("hello"))
		require.NoError(t, err)
		require.Len(t, sig, 65)
		assert.Contains(t, []byte{27, 28}, sig[64])

		sig[64] -= 27
		hash := crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n5hello"))
		pub, err := crypto.SigToPub(hash, sig)
		require.NoError(t, err)
		assert.Equal(t, s.Address().Hex(), crypto.PubkeyToAddress(*pub).Hex())
		return nil
	})
	require.NoError(t, err)
}
