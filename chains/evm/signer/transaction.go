package signer

import (
	"math/big"

	"github.com/ClipFinance/dex-engine/common/codec"
)

// TxTypeEIP1559 is the typed-transaction prefix of dynamic fee transactions.
const TxTypeEIP1559 = 0x02

// UnsignedTx is an EIP-1559 transaction before signing. The access list is
// always empty.
type UnsignedTx struct {
	ChainID              uint64
	Nonce                uint64
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	Gas                  uint64
	To                   codec.Address
	Value                *big.Int
	Data                 []byte
}

// SignedTx is a signed transaction ready for eth_sendRawTransaction.
//
// Fields:
// - Raw: the typed envelope, 0x02 || rlp(fields, v, r, s).
// - Hash: the 0x-prefixed keccak256 of Raw.
// - V: the recovery id, 0 or 1.
// - R: the r value without leading zeros.
// - S: the s value without leading zeros.
type SignedTx struct {
	Raw  []byte
	Hash string
	V    byte
	R    []byte
	S    []byte
}

func (tx *UnsignedTx) fields() [][]byte {
	return [][]byte{
		codec.EncodeRLPUint(tx.ChainID),
		codec.EncodeRLPUint(tx.Nonce),
		codec.EncodeRLPBigInt(tx.MaxPriorityFeePerGas),
		codec.EncodeRLPBigInt(tx.MaxFeePerGas),
		codec.EncodeRLPUint(tx.Gas),
		codec.EncodeRLPBytes(tx.To[:]),
		codec.EncodeRLPBigInt(tx.Value),
		codec.EncodeRLPBytes(tx.Data),
		codec.EncodeRLPList(),
	}
}

func (tx *UnsignedTx) envelope(extra ...[]byte) []byte {
	items := append(tx.fields(), extra...)
	return append([]byte{TxTypeEIP1559}, codec.EncodeRLPList(items...)...)
}

// SigningPayload returns 0x02 || rlp([chainId, nonce, maxPriorityFeePerGas,
// maxFeePerGas, gas, to, value, data, accessList]).
func (tx *UnsignedTx) SigningPayload() []byte {
	return tx.envelope()
}

// SigningHash returns keccak256 of the signing payload.
func (tx *UnsignedTx) SigningHash() []byte {
	return codec.Keccak256(tx.SigningPayload())
}

// EncodeSignature returns the RLP items appended to a signed envelope.
func EncodeSignature(v byte, r, s []byte) [][]byte {
	return [][]byte{
		codec.EncodeRLPUint(uint64(v)),
		codec.EncodeRLPBytes(r),
		codec.EncodeRLPBytes(s),
	}
}
