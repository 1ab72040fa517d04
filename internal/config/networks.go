package config

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	NetworkMainnet = "mainnet"
	NetworkGoerli  = "goerli"
)

// NetworkConfig is one row of the per-network deployment table.
type NetworkConfig struct {
	Name           string `mapstructure:"name"`
	ChainID        uint64 `mapstructure:"chain-id"`
	RewardToken    string `mapstructure:"reward-token"`
	PairToken      string `mapstructure:"pair-token"`
	NFTManager     string `mapstructure:"nft-manager"`
	StakingRewards string `mapstructure:"staking-rewards"`
	Subgraph       string `mapstructure:"subgraph"`
	Explorer       string `mapstructure:"explorer"`
}

// DefaultNetworks returns a fresh copy of the built-in deployment table.
func DefaultNetworks() map[string]NetworkConfig {
	return map[string]NetworkConfig{
		NetworkMainnet: {
			Name:           NetworkMainnet,
			ChainID:        1,
			RewardToken:    "0x4343d80ef5808490a079aa0907ffdc9373c7a4dd",
			PairToken:      "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
			NFTManager:     "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
			StakingRewards: "0xe34139463bA50bD61336E0c446Bd8C0867c6fE65",
			Subgraph:       "https://api.thegraph.com/subgraphs/name/mchainnetwork/mar-staking-mainnet",
			Explorer:       "https://etherscan.io",
		},
		NetworkGoerli: {
			Name:           NetworkGoerli,
			ChainID:        5,
			RewardToken:    "0x4343d80ef5808490a079aa0907ffdc9373c7a4dd",
			PairToken:      "0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6",
			NFTManager:     "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
			StakingRewards: "0xe34139463bA50bD61336E0c446Bd8C0867c6fE65",
			Subgraph:       "https://api.thegraph.com/subgraphs/name/mchainnetwork/mar-staking-goerli",
			Explorer:       "https://goerli.etherscan.io",
		},
	}
}

// Enabled reports whether every address and endpoint the core needs is configured.
// An empty entry means the deployment does not exist on that network yet.
func (n NetworkConfig) Enabled() bool {
	for _, addr := range []string{n.RewardToken, n.PairToken, n.NFTManager, n.StakingRewards} {
		if !common.IsHexAddress(strings.TrimSpace(addr)) {
			return false
		}
	}
	return strings.TrimSpace(n.Subgraph) != ""
}

func (n NetworkConfig) RewardTokenAddress() common.Address { return common.HexToAddress(n.RewardToken) }
func (n NetworkConfig) PairTokenAddress() common.Address   { return common.HexToAddress(n.PairToken) }
func (n NetworkConfig) NFTManagerAddress() common.Address  { return common.HexToAddress(n.NFTManager) }
func (n NetworkConfig) StakingAddress() common.Address     { return common.HexToAddress(n.StakingRewards) }

// TxURL links a transaction hash on the network's explorer, or "" if none is configured.
func (n NetworkConfig) TxURL(hash string) string {
	if n.Explorer == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash
}

// ByChainID finds the network whose chain id matches.
func ByChainID(networks map[string]NetworkConfig, chainID uint64) (NetworkConfig, bool) {
	for name, n := range networks {
		if n.ChainID == chainID {
			n.Name = name
			return n, true
		}
	}
	return NetworkConfig{}, false
}

// merge applies the fields of o that set reports as explicitly configured.
// An explicit empty address wins, which disables the network.
func (n NetworkConfig) merge(o NetworkConfig, set func(field string) bool) NetworkConfig {
	if set("chain-id") {
		n.ChainID = o.ChainID
	}
	if set("reward-token") {
		n.RewardToken = o.RewardToken
	}
	if set("pair-token") {
		n.PairToken = o.PairToken
	}
	if set("nft-manager") {
		n.NFTManager = o.NFTManager
	}
	if set("staking-rewards") {
		n.StakingRewards = o.StakingRewards
	}
	if set("subgraph") {
		n.Subgraph = o.Subgraph
	}
	if set("explorer") {
		n.Explorer = o.Explorer
	}
	return n
}
