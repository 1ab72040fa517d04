package subgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"liquidityStaker/internal/model"
)

// BigInt decodes subgraph BigInt scalars, which arrive as decimal strings,
// and tolerates bare JSON numbers.
type BigInt struct {
	big.Int
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		b.SetInt64(0)
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		b.SetInt64(0)
		return nil
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid BigInt %q", s)
	}
	return nil
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// Big returns a copy as *big.Int.
func (b *BigInt) Big() *big.Int {
	return new(big.Int).Set(&b.Int)
}

// Incentive is the incentive entity as returned by the subgraph.
type Incentive struct {
	ID          string `json:"id"`
	RewardToken string `json:"rewardToken"`
	Pool        string `json:"pool"`
	StartTime   BigInt `json:"startTime"`
	EndTime     BigInt `json:"endTime"`
	Refundee    string `json:"refundee"`
	Reward      BigInt `json:"reward"`
	Ended       bool   `json:"ended"`
}

// Model converts the entity into the domain type.
func (i Incentive) Model() (model.Incentive, error) {
	for name, addr := range map[string]string{"rewardToken": i.RewardToken, "pool": i.Pool, "refundee": i.Refundee} {
		if !common.IsHexAddress(addr) {
			return model.Incentive{}, fmt.Errorf("incentive %s: invalid %s %q", i.ID, name, addr)
		}
	}
	if !i.StartTime.IsUint64() || !i.EndTime.IsUint64() {
		return model.Incentive{}, fmt.Errorf("incentive %s: time out of range", i.ID)
	}
	if i.Reward.Sign() < 0 {
		return model.Incentive{}, fmt.Errorf("incentive %s: negative reward", i.ID)
	}
	return model.Incentive{
		ID: i.ID,
		Key: model.IncentiveKey{
			RewardToken: common.HexToAddress(i.RewardToken),
			Pool:        common.HexToAddress(i.Pool),
			StartTime:   i.StartTime.Uint64(),
			EndTime:     i.EndTime.Uint64(),
			Refundee:    common.HexToAddress(i.Refundee),
		},
		Reward: i.Reward.Big(),
		Ended:  i.Ended,
	}, nil
}

// Position is the position entity as returned by the subgraph.
type Position struct {
	ID        string  `json:"id"`
	TokenID   BigInt  `json:"tokenId"`
	Owner     string  `json:"owner"`
	Staked    bool    `json:"staked"`
	Liquidity BigInt  `json:"liquidity"`
	Approved  *string `json:"approved"`
}
