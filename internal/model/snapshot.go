package model

import (
	"math/big"
	"time"
)

// Snapshot is a published position list with the context it was derived in.
type Snapshot struct {
	Network     string     `json:"network"`
	ChainID     uint64     `json:"chain_id"`
	Owner       string     `json:"owner"`
	IncentiveID string     `json:"incentive_id"`
	Positions   []Position `json:"positions"`
	Claimable   *big.Int   `json:"claimable,omitempty"`
	TakenAt     time.Time  `json:"taken_at"`
}
