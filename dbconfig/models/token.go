package models

// Token is a row of the tokens table, extending a chain's registry.
type Token struct {
	ChainID  uint64
	Symbol   string
	Address  string
	Decimals uint8
}
