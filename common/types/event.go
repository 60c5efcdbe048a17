package types

import "math/big"

// TransferEvent is a decoded ERC-20 Transfer log.
//
// Fields:
// - Token: the token contract that emitted the event.
// - From: the sender address.
// - To: the recipient address.
// - Value: the raw transferred amount.
// - BlockNumber: the block the event was included in.
// - TxHash: the transaction that emitted the event.
// - LogIndex: the index of the log within the block.
// - Incoming: true when the queried address is the recipient.
type TransferEvent struct {
	Token       string
	From        string
	To          string
	Value       *big.Int
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
	Incoming    bool
}
