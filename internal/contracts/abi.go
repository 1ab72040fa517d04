package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Subset of NonfungiblePositionManager used by the staking flow. Only the
// three-argument safeTransferFrom is declared so the method name stays unambiguous.
const positionManagerABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "positions",
    "outputs": [
      {"internalType": "uint96", "name": "nonce", "type": "uint96"},
      {"internalType": "address", "name": "operator", "type": "address"},
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"},
      {"internalType": "int24", "name": "tickLower", "type": "int24"},
      {"internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"internalType": "uint256", "name": "feeGrowthInside0LastX128", "type": "uint256"},
      {"internalType": "uint256", "name": "feeGrowthInside1LastX128", "type": "uint256"},
      {"internalType": "uint128", "name": "tokensOwed0", "type": "uint128"},
      {"internalType": "uint128", "name": "tokensOwed1", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "approve",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "from", "type": "address"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "safeTransferFrom",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "getApproved",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const incentiveKeyComponents = `[
  {"internalType": "contract IERC20Minimal", "name": "rewardToken", "type": "address"},
  {"internalType": "contract IUniswapV3Pool", "name": "pool", "type": "address"},
  {"internalType": "uint256", "name": "startTime", "type": "uint256"},
  {"internalType": "uint256", "name": "endTime", "type": "uint256"},
  {"internalType": "address", "name": "refundee", "type": "address"}
]`

// Subset of UniswapV3Staker.
const stakingRewardsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"indexed": true, "internalType": "bytes32", "name": "incentiveId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint128", "name": "liquidity", "type": "uint128"}
    ],
    "name": "TokenStaked",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"indexed": true, "internalType": "bytes32", "name": "incentiveId", "type": "bytes32"}
    ],
    "name": "TokenUnstaked",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "reward", "type": "uint256"}
    ],
    "name": "RewardClaimed",
    "type": "event"
  },
  {
    "inputs": [
      {"components": ` + incentiveKeyComponents + `, "internalType": "struct IUniswapV3Staker.IncentiveKey", "name": "key", "type": "tuple"},
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "getRewardInfo",
    "outputs": [
      {"internalType": "uint256", "name": "reward", "type": "uint256"},
      {"internalType": "uint160", "name": "secondsInsideX128", "type": "uint160"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"components": ` + incentiveKeyComponents + `, "internalType": "struct IUniswapV3Staker.IncentiveKey", "name": "key", "type": "tuple"},
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "stakeToken",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"components": ` + incentiveKeyComponents + `, "internalType": "struct IUniswapV3Staker.IncentiveKey", "name": "key", "type": "tuple"},
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "unstakeToken",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "contract IERC20Minimal", "name": "rewardToken", "type": "address"},
      {"internalType": "address", "name": "owner", "type": "address"}
    ],
    "name": "rewards",
    "outputs": [{"internalType": "uint256", "name": "rewardsOwed", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "contract IERC20Minimal", "name": "rewardToken", "type": "address"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "amountRequested", "type": "uint256"}
    ],
    "name": "claimReward",
    "outputs": [{"internalType": "uint256", "name": "reward", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "bytes", "name": "data", "type": "bytes"}
    ],
    "name": "withdrawToken",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "deposits",
    "outputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "uint48", "name": "numberOfStakes", "type": "uint48"},
      {"internalType": "int24", "name": "tickLower", "type": "int24"},
      {"internalType": "int24", "name": "tickUpper", "type": "int24"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	positionManagerABI     abi.ABI
	positionManagerABIOnce sync.Once
	positionManagerABIErr  error

	stakingRewardsABI     abi.ABI
	stakingRewardsABIOnce sync.Once
	stakingRewardsABIErr  error
)

// PositionManagerABI returns the parsed position manager ABI.
func PositionManagerABI() (abi.ABI, error) {
	positionManagerABIOnce.Do(func() {
		positionManagerABI, positionManagerABIErr = abi.JSON(strings.NewReader(positionManagerABIJSON))
	})
	return positionManagerABI, positionManagerABIErr
}

// StakingRewardsABI returns the parsed staking rewards ABI.
func StakingRewardsABI() (abi.ABI, error) {
	stakingRewardsABIOnce.Do(func() {
		stakingRewardsABI, stakingRewardsABIErr = abi.JSON(strings.NewReader(stakingRewardsABIJSON))
	})
	return stakingRewardsABI, stakingRewardsABIErr
}
