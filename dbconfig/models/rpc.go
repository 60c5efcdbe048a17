package models

import "time"

// RPC is a row of the rpcs table.
type RPC struct {
	ID        int64
	ChainID   uint64
	URL       string
	Provider  string
	Priority  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
