package positions

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityStaker/internal/config"
	"liquidityStaker/internal/contracts"
	"liquidityStaker/internal/model"
	"liquidityStaker/internal/subgraph"
)

// PositionSource lists the subgraph position records of an owner.
type PositionSource interface {
	Positions(ctx context.Context, owner common.Address) ([]subgraph.Position, error)
}

// PositionReader reads canonical position state from the position manager.
type PositionReader interface {
	Positions(ctx context.Context, tokenID uint64) (contracts.PositionInfo, error)
}

// RewardReader reads staking rewards.
type RewardReader interface {
	GetRewardInfo(ctx context.Context, key model.IncentiveKey, tokenID uint64) (contracts.RewardInfo, error)
	Rewards(ctx context.Context, rewardToken, owner common.Address) (*big.Int, error)
}

// Releaser is an acquired event subscription.
type Releaser interface {
	Unsubscribe()
	Err() <-chan error
}

// EventSource subscribes to staking contract events.
type EventSource interface {
	Watch(ctx context.Context, sink chan<- contracts.StakeEvent) (Releaser, error)
}

// IncentiveSelector exposes the currently selected incentive.
type IncentiveSelector interface {
	Current() (model.Incentive, bool)
	CurrentID() string
	Changes() <-chan struct{}
}

// Session is everything a synchronizer needs for one (owner, network) pair.
// A nil Manager or Staking disables reconciliation; a nil Events leaves the
// synchronizer on polling only.
type Session struct {
	Owner    common.Address
	Network  config.NetworkConfig
	Subgraph PositionSource
	Manager  PositionReader
	Staking  RewardReader
	Events   EventSource
}

type stakingEvents struct {
	staking *contracts.StakingRewards
}

// StakingEvents adapts the staking contract binding into an EventSource.
func StakingEvents(staking *contracts.StakingRewards) EventSource {
	return stakingEvents{staking: staking}
}

func (e stakingEvents) Watch(ctx context.Context, sink chan<- contracts.StakeEvent) (Releaser, error) {
	sub, err := e.staking.WatchStakeEvents(ctx, sink)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
