package signer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signer is an interface that defines methods for signing data and transactions, and retrieving the signer's address.
type Signer interface {
	// Sign signs the given data as an EIP-191 personal message and returns the signature.
	//
	// Parameters:
	// - data: the data to be signed.
	//
	// Returns:
	// - []byte: the 65-byte signature with V in {27, 28}.
	// - error: an error if the signing process fails.
	Sign(data []byte) ([]byte, error)

	// SignTx signs an EIP-1559 transaction.
	//
	// Parameters:
	// - tx: the transaction to be signed.
	//
	// Returns:
	// - *SignedTx: the raw envelope and its hash.
	// - error: an error if the signing process fails.
	SignTx(tx *UnsignedTx) (*SignedTx, error)

	// Address returns the signer's address.
	//
	// Returns:
	// - codec.Address: the signer's address.
	Address() codec.Address
}

// signer is a concrete implementation of the Signer interface.
type signer struct {
	privateKey *ecdsa.PrivateKey
	address    codec.Address
}

// NewSigner creates a new signer instance with the given private key.
//
// Parameters:
// - privateKey: the private key to be used for signing.
//
// Returns:
// - Signer: a new signer instance.
// - error: an error if the private key is not valid.
func NewSigner(privateKey *ecdsa.PrivateKey) (Signer, error) {
	pubKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("cannot assign public key to ECDSA")
	}

	address, err := codec.AddressFromPublicKey(crypto.FromECDSAPub(pubKeyECDSA))
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive address")
	}

	return &signer{
		privateKey: privateKey,
		address:    address,
	}, nil
}

// WithKey runs fn with a signer built from a raw 32-byte secp256k1 key.
// The key bytes and the parsed scalar are zeroed before WithKey returns,
// whatever fn does. The signer must not escape fn.
//
// Parameters:
// - key: the raw private key; it is wiped.
// - fn: the signing frame.
//
// Returns:
// - error: an error if the key is invalid or fn fails.
func WithKey(key []byte, fn func(Signer) error) error {
	defer zero(key)

	privateKey, err := crypto.ToECDSA(key)
	if err != nil {
		return errors.New("invalid private key")
	}
	defer zeroKey(privateKey)

	s, err := NewSigner(privateKey)
	if err != nil {
		return err
	}

	return fn(s)
}

// GenerateKey creates a random secp256k1 key and returns its raw bytes and
// address. The caller owns the bytes and must wipe them.
func GenerateKey() ([]byte, codec.Address, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, codec.Address{}, errors.Wrap(err, "failed to generate key")
	}
	defer zeroKey(privateKey)

	s, err := NewSigner(privateKey)
	if err != nil {
		return nil, codec.Address{}, err
	}

	return crypto.FromECDSA(privateKey), s.Address(), nil
}

// AddressFromKey derives the address of a raw private key without keeping it.
func AddressFromKey(key []byte) (codec.Address, error) {
	var address codec.Address
	keyCopy := append([]byte{}, key...)
	err := WithKey(keyCopy, func(s Signer) error {
		address = s.Address()
		return nil
	})
	return address, err
}

// Sign signs the given data and returns the signature.
//
// Parameters:
// - data: the data to be signed.
//
// Returns:
// - []byte: the signature.
// - error: an error if the signing process fails.
func (s *signer) Sign(data []byte) ([]byte, error) {
	msg := crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)))
	signature, err := crypto.Sign(msg, s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign message")
	}
	signature[64] += 27 // Transform V from 0/1 to 27/28 according to the yellow paper

	return signature, nil
}

// Address returns the signer's address.
//
// Returns:
// - codec.Address: the signer's address.
func (s *signer) Address() codec.Address {
	return s.address
}

// SignTx signs the keccak hash of the typed payload and re-encodes the
// transaction with the recovery id and minimal r and s.
//
// Parameters:
// - tx: the transaction to be signed.
//
// Returns:
// - *SignedTx: the signed transaction.
// - error: an error if the signing process fails.
func (s *signer) SignTx(tx *UnsignedTx) (*SignedTx, error) {
	signature, err := crypto.Sign(codec.Keccak256(tx.SigningPayload()), s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	defer zero(signature)

	r := trimLeadingZeros(signature[:32])
	sv := trimLeadingZeros(signature[32:64])
	v := signature[64]

	raw := tx.envelope(EncodeSignature(v, r, sv)...)
	return &SignedTx{
		Raw:  raw,
		Hash: codec.EncodeHex(codec.Keccak256(raw)),
		V:    v,
		R:    append([]byte{}, r...),
		S:    append([]byte{}, sv...),
	}, nil
}

func trimLeadingZeros(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func zeroKey(k *ecdsa.PrivateKey) {
	if k == nil || k.D == nil {
		return
	}
	words := k.D.Bits()
	for i := range words {
		words[i] = 0
	}
	k.D.SetInt64(0)
}
