package contracts

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// StakeEventKind names the staking contract events the core listens to.
type StakeEventKind string

const (
	EventTokenStaked   StakeEventKind = "TokenStaked"
	EventTokenUnstaked StakeEventKind = "TokenUnstaked"
	EventRewardClaimed StakeEventKind = "RewardClaimed"
)

// StakeEvent is a decoded staking contract log.
type StakeEvent struct {
	Kind        StakeEventKind
	TokenID     uint64
	IncentiveID common.Hash
	Recipient   common.Address
	Reward      *big.Int
	Liquidity   *big.Int
	BlockNumber uint64
	TxHash      common.Hash
	Removed     bool
}

// DecodeStakeEvent converts a raw staking contract log into a StakeEvent.
func DecodeStakeEvent(log types.Log) (StakeEvent, error) {
	parsed, err := StakingRewardsABI()
	if err != nil {
		return StakeEvent{}, fmt.Errorf("parse staking rewards abi: %w", err)
	}
	if len(log.Topics) == 0 {
		return StakeEvent{}, fmt.Errorf("missing topics")
	}

	ev := StakeEvent{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		Removed:     log.Removed,
	}

	switch log.Topics[0] {
	case parsed.Events[string(EventTokenStaked)].ID:
		if len(log.Topics) < 3 {
			return StakeEvent{}, fmt.Errorf("TokenStaked: expected 3 topics, got %d", len(log.Topics))
		}
		values, err := parsed.Unpack(string(EventTokenStaked), log.Data)
		if err != nil {
			return StakeEvent{}, fmt.Errorf("unpack TokenStaked: %w", err)
		}
		if len(values) > 0 {
			if ev.Liquidity, err = asBigInt(values[0]); err != nil {
				return StakeEvent{}, fmt.Errorf("liquidity: %w", err)
			}
		}
		ev.Kind = EventTokenStaked
		ev.TokenID = log.Topics[1].Big().Uint64()
		ev.IncentiveID = log.Topics[2]
	case parsed.Events[string(EventTokenUnstaked)].ID:
		if len(log.Topics) < 3 {
			return StakeEvent{}, fmt.Errorf("TokenUnstaked: expected 3 topics, got %d", len(log.Topics))
		}
		ev.Kind = EventTokenUnstaked
		ev.TokenID = log.Topics[1].Big().Uint64()
		ev.IncentiveID = log.Topics[2]
	case parsed.Events[string(EventRewardClaimed)].ID:
		if len(log.Topics) < 2 {
			return StakeEvent{}, fmt.Errorf("RewardClaimed: expected 2 topics, got %d", len(log.Topics))
		}
		values, err := parsed.Unpack(string(EventRewardClaimed), log.Data)
		if err != nil {
			return StakeEvent{}, fmt.Errorf("unpack RewardClaimed: %w", err)
		}
		if len(values) == 0 {
			return StakeEvent{}, fmt.Errorf("RewardClaimed: empty data")
		}
		if ev.Reward, err = asBigInt(values[0]); err != nil {
			return StakeEvent{}, fmt.Errorf("reward: %w", err)
		}
		ev.Kind = EventRewardClaimed
		ev.Recipient = common.BytesToAddress(log.Topics[1].Bytes())
	default:
		return StakeEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	return ev, nil
}

// Subscription is an acquired event listener. Unsubscribe releases it; it is
// safe to call more than once and returns after the forwarding goroutine exits.
type Subscription struct {
	sub    event.Subscription
	cancel context.CancelFunc
	done   chan struct{}
	errc   chan error
	once   sync.Once
}

// Err delivers a terminal subscription error, if any.
func (s *Subscription) Err() <-chan error {
	return s.errc
}

// Unsubscribe releases the listener.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.sub.Unsubscribe()
		<-s.done
	})
}

// WatchStakeEvents subscribes to TokenStaked, TokenUnstaked and RewardClaimed
// and forwards decoded events to sink until released or ctx is done.
// Undecodable logs are dropped.
func (s *StakingRewards) WatchStakeEvents(ctx context.Context, sink chan<- StakeEvent) (*Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{s.address},
		Topics: [][]common.Hash{{
			s.abi.Events[string(EventTokenStaked)].ID,
			s.abi.Events[string(EventTokenUnstaked)].ID,
			s.abi.Events[string(EventRewardClaimed)].ID,
		}},
	}

	ctx, cancel := context.WithCancel(ctx)
	logs := make(chan types.Log, 16)
	sub, err := s.filterer.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe staking events: %w", err)
	}

	out := &Subscription{
		sub:    sub,
		cancel: cancel,
		done:   make(chan struct{}),
		errc:   make(chan error, 1),
	}

	go func() {
		defer close(out.done)
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					out.errc <- err
				}
				return
			case log := <-logs:
				ev, err := DecodeStakeEvent(log)
				if err != nil {
					continue
				}
				select {
				case sink <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
