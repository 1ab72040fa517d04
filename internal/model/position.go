package model

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Position is a liquidity position NFT tracked for the connected owner.
type Position struct {
	TokenID uint64         `json:"token_id"`
	Owner   common.Address `json:"owner"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
	Staked  bool           `json:"staked"`
	Reward  *big.Int       `json:"reward"`
	// Error is a position-scoped advisory, e.g. not enrolled in the current incentive.
	Error string `json:"error,omitempty"`
}

// Clone returns a deep copy.
func (p Position) Clone() Position {
	out := p
	if p.Reward != nil {
		out.Reward = new(big.Int).Set(p.Reward)
	} else {
		out.Reward = new(big.Int)
	}
	return out
}

// ClonePositions deep-copies a position list.
func ClonePositions(in []Position) []Position {
	out := make([]Position, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// SortPositions orders positions by token id, highest first.
func SortPositions(positions []Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].TokenID > positions[j].TokenID
	})
}

// MatchesPair reports whether (token0, token1) is the pair {a, b} in either order.
func MatchesPair(token0, token1, a, b common.Address) bool {
	return (token0 == a && token1 == b) || (token0 == b && token1 == a)
}
