package models

import (
	"time"
)

// Chain is a row of the chains table. Empty fields leave the built-in
// network entry untouched.
type Chain struct {
	ID             int64
	ChainID        uint64
	Name           string
	ExplorerURL    string
	NativeSymbol   string
	QuoterV2       string
	SwapRouter02   string
	WETH           string
	DefaultFeeTier uint32
	LogChunkSize   uint64
	SafetyGuard    bool
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
