package types

import "math/big"

// NativeTokenAddress is the placeholder address used for the native gas token.
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// Token is an entry of the token registry.
//
// Fields:
// - Symbol: the ticker, matched case-insensitively.
// - Address: the checksummed contract address, NativeTokenAddress for ETH.
// - Decimals: the number of decimals of the raw amount.
// - Native: true for the chain's gas token.
type Token struct {
	Symbol   string
	Address  string
	Decimals uint8
	Native   bool
}

// TokenBalance is a single portfolio line.
type TokenBalance struct {
	Token  Token
	Raw    *big.Int
	Amount string
}

// Portfolio is the set of balances held by an address on one network.
type Portfolio struct {
	Network  string
	Address  string
	Native   TokenBalance
	Balances []TokenBalance
}

// TokenInfo is the on-chain metadata of a token contract. Fields that could
// not be read are left empty and listed in Unreadable.
type TokenInfo struct {
	Network        string
	Address        string
	Name           string
	Symbol         string
	Decimals       uint8
	DecimalsKnown  bool
	TotalSupply    *big.Int
	Owner          string
	OwnerRenounced bool
	CodeSize       int
	ContractETH    *big.Int
	Unreadable     []string
	Explorer       string
}
