package types

import "math/big"

// TransferRequest sends native ETH or an ERC-20 token.
//
// Fields:
// - WalletID: the vault wallet to send from.
// - To: the recipient address.
// - Token: symbol or address; empty or "ETH" sends native ETH.
// - Amount: the human readable amount.
// - Decimals: decimals of an unlisted token; nil reads them on chain.
type TransferRequest struct {
	WalletID string `json:"wallet_id"`
	To       string `json:"to"`
	Token    string `json:"token,omitempty"`
	Amount   string `json:"amount"`
	Decimals *uint8 `json:"decimals,omitempty"`
}

// TransferResult is the outcome of a transfer.
type TransferResult struct {
	Status      TransactionStatus
	TxHash      string
	From        string
	To          string
	Token       Token
	Amount      string
	Nonce       uint64
	BlockNumber uint64
	GasUsed     uint64
	Explorer    string
}

// Receipt is the subset of a transaction receipt the engine uses.
type Receipt struct {
	TxHash            string
	Status            uint64
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Logs              []Log
}

// Succeeded reports whether the transaction was mined with status 0x1.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}

// Log is an event log entry.
type Log struct {
	Address     string
	Topics      []string
	Data        []byte
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
}

// LogFilter selects logs for eth_getLogs. A nil topic matches anything in
// that position.
type LogFilter struct {
	Addresses []string
	Topics    [][]string
}

// Allowance is the ERC-20 allowance of owner towards spender.
type Allowance struct {
	Token    string
	Owner    string
	Spender  string
	Current  *big.Int
	Required *big.Int
}

// Sufficient reports whether no approval is needed.
func (a *Allowance) Sufficient() bool {
	return a.Current != nil && a.Required != nil && a.Current.Cmp(a.Required) >= 0
}
