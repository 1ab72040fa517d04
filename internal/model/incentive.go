package model

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// IncentiveKey identifies a reward program on the staking contract.
// It is passed verbatim to stakeToken/unstakeToken/getRewardInfo, so every
// field must match the values the incentive was created with.
type IncentiveKey struct {
	RewardToken common.Address `json:"reward_token"`
	Pool        common.Address `json:"pool"`
	StartTime   uint64         `json:"start_time"`
	EndTime     uint64         `json:"end_time"`
	Refundee    common.Address `json:"refundee"`
}

// IncentiveKeyTuple is the ABI shape of IncentiveKey.
type IncentiveKeyTuple struct {
	RewardToken common.Address
	Pool        common.Address
	StartTime   *big.Int
	EndTime     *big.Int
	Refundee    common.Address
}

// Tuple converts the key into its ABI-packable form.
func (k IncentiveKey) Tuple() IncentiveKeyTuple {
	return IncentiveKeyTuple{
		RewardToken: k.RewardToken,
		Pool:        k.Pool,
		StartTime:   new(big.Int).SetUint64(k.StartTime),
		EndTime:     new(big.Int).SetUint64(k.EndTime),
		Refundee:    k.Refundee,
	}
}

var incentiveKeyArgs = func() abi.Arguments {
	tupleType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "rewardToken", Type: "address"},
		{Name: "pool", Type: "address"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "refundee", Type: "address"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: tupleType}}
}()

// ID returns keccak256(abi.encode(key)), the id the staking contract emits in
// TokenStaked/TokenUnstaked and the subgraph uses as the incentive entity id.
func (k IncentiveKey) ID() common.Hash {
	packed, err := incentiveKeyArgs.Pack(k.Tuple())
	if err != nil {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(packed)
}

// IsZero reports whether the key is unset.
func (k IncentiveKey) IsZero() bool {
	return k == IncentiveKey{}
}

// Incentive is a reward program loaded from the subgraph.
type Incentive struct {
	ID     string       `json:"id"`
	Key    IncentiveKey `json:"key"`
	Reward *big.Int     `json:"reward"`
	Ended  bool         `json:"ended"`
}

// SameIncentiveID compares incentive ids as hex strings, ignoring case.
func SameIncentiveID(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
