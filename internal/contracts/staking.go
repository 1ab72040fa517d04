package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"liquidityStaker/internal/model"
)

// RewardInfo is the reward part of getRewardInfo. The seconds-inside
// accumulator it also returns is not tracked.
type RewardInfo struct {
	Reward *big.Int
}

// Deposit is the staking contract's custody record for a token.
type Deposit struct {
	Owner          common.Address
	NumberOfStakes uint64
	TickLower      int32
	TickUpper      int32
}

// StakingRewards is a handle on the staking rewards contract.
type StakingRewards struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	filterer bind.ContractFilterer
}

// NewStakingRewards binds the staking rewards contract at address.
func NewStakingRewards(address common.Address, backend bind.ContractBackend) (*StakingRewards, error) {
	parsed, err := StakingRewardsABI()
	if err != nil {
		return nil, fmt.Errorf("parse staking rewards abi: %w", err)
	}
	return &StakingRewards{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		filterer: backend,
	}, nil
}

// Address returns the contract address.
func (s *StakingRewards) Address() common.Address {
	return s.address
}

// GetRewardInfo reads the reward accrued by tokenID under key. A stake that is
// not registered under key yields an error wrapping ErrStakeNotFound.
func (s *StakingRewards) GetRewardInfo(ctx context.Context, key model.IncentiveKey, tokenID uint64) (RewardInfo, error) {
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getRewardInfo", key.Tuple(), tokenIDBig(tokenID)); err != nil {
		if IsStakeNotFound(err) {
			return RewardInfo{}, fmt.Errorf("%w: token %d: %v", ErrStakeNotFound, tokenID, err)
		}
		return RewardInfo{}, fmt.Errorf("call getRewardInfo: %w", err)
	}
	if len(out) < 2 {
		return RewardInfo{}, fmt.Errorf("getRewardInfo: unexpected output length %d", len(out))
	}
	reward, err := asBigInt(out[0])
	if err != nil {
		return RewardInfo{}, fmt.Errorf("reward: %w", err)
	}
	return RewardInfo{Reward: reward}, nil
}

// Rewards reads the claimable reward balance of owner for rewardToken.
func (s *StakingRewards) Rewards(ctx context.Context, rewardToken, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "rewards", rewardToken, owner); err != nil {
		return nil, fmt.Errorf("call rewards: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("rewards: empty output")
	}
	return asBigInt(out[0])
}

// Deposits reads the custody record of tokenID.
func (s *StakingRewards) Deposits(ctx context.Context, tokenID uint64) (Deposit, error) {
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "deposits", tokenIDBig(tokenID)); err != nil {
		return Deposit{}, fmt.Errorf("call deposits: %w", err)
	}
	if len(out) < 4 {
		return Deposit{}, fmt.Errorf("deposits: unexpected output length %d", len(out))
	}
	owner, err := asAddress(out[0])
	if err != nil {
		return Deposit{}, fmt.Errorf("owner: %w", err)
	}
	stakes, err := asBigInt(out[1])
	if err != nil {
		return Deposit{}, fmt.Errorf("number of stakes: %w", err)
	}
	lower, err := asBigInt(out[2])
	if err != nil {
		return Deposit{}, fmt.Errorf("tick lower: %w", err)
	}
	upper, err := asBigInt(out[3])
	if err != nil {
		return Deposit{}, fmt.Errorf("tick upper: %w", err)
	}
	tickLower, err := int24FromBig(lower)
	if err != nil {
		return Deposit{}, err
	}
	tickUpper, err := int24FromBig(upper)
	if err != nil {
		return Deposit{}, err
	}
	return Deposit{
		Owner:          owner,
		NumberOfStakes: stakes.Uint64(),
		TickLower:      tickLower,
		TickUpper:      tickUpper,
	}, nil
}

// StakeToken registers a custodied token under key.
func (s *StakingRewards) StakeToken(opts *bind.TransactOpts, key model.IncentiveKey, tokenID uint64) (*types.Transaction, error) {
	tx, err := s.contract.Transact(opts, "stakeToken", key.Tuple(), tokenIDBig(tokenID))
	if err != nil {
		return nil, fmt.Errorf("stake token: %w", err)
	}
	return tx, nil
}

// UnstakeToken deregisters a token from key.
func (s *StakingRewards) UnstakeToken(opts *bind.TransactOpts, key model.IncentiveKey, tokenID uint64) (*types.Transaction, error) {
	tx, err := s.contract.Transact(opts, "unstakeToken", key.Tuple(), tokenIDBig(tokenID))
	if err != nil {
		return nil, fmt.Errorf("unstake token: %w", err)
	}
	return tx, nil
}

// ClaimReward transfers amount of rewardToken owed to the sender to recipient.
func (s *StakingRewards) ClaimReward(opts *bind.TransactOpts, rewardToken, recipient common.Address, amount *big.Int) (*types.Transaction, error) {
	tx, err := s.contract.Transact(opts, "claimReward", rewardToken, recipient, amount)
	if err != nil {
		return nil, fmt.Errorf("claim reward: %w", err)
	}
	return tx, nil
}

// WithdrawToken returns custody of tokenID to recipient.
func (s *StakingRewards) WithdrawToken(opts *bind.TransactOpts, tokenID uint64, recipient common.Address, data []byte) (*types.Transaction, error) {
	if data == nil {
		data = []byte{}
	}
	tx, err := s.contract.Transact(opts, "withdrawToken", tokenIDBig(tokenID), recipient, data)
	if err != nil {
		return nil, fmt.Errorf("withdraw token: %w", err)
	}
	return tx, nil
}
