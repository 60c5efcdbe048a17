package codec

import "github.com/ethereum/go-ethereum/crypto"

// Keccak256 returns the legacy Keccak-256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

// Selector returns the 4-byte function selector of a canonical signature
// such as "transfer(address,uint256)".
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], Keccak256([]byte(signature))[:4])
	return sel
}

// EventTopic returns the full 32-byte topic hash of an event signature.
func EventTopic(signature string) string {
	return EncodeHex(Keccak256([]byte(signature)))
}
