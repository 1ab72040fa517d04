package subgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const incentivesQuery = `query($rewardTokenAddress: String!) {
  incentives(where: { rewardToken: $rewardTokenAddress }, orderBy: endTime, orderDirection: desc) {
    id
    rewardToken
    pool
    startTime
    endTime
    refundee
    reward
    ended
  }
}`

const positionsQuery = `query($owner: String!) {
  positions(where: { owner: $owner }) {
    id
    tokenId
    owner
    staked
    liquidity
    approved
  }
}`

// Incentives returns incentives paying rewardToken, most recently ending first.
func (c *Client) Incentives(ctx context.Context, rewardToken common.Address) ([]Incentive, error) {
	var out struct {
		Incentives []Incentive `json:"incentives"`
	}
	vars := map[string]interface{}{"rewardTokenAddress": strings.ToLower(rewardToken.Hex())}
	if err := c.Query(ctx, incentivesQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("query incentives: %w", err)
	}
	return out.Incentives, nil
}

// Positions returns the position records owned by owner.
func (c *Client) Positions(ctx context.Context, owner common.Address) ([]Position, error) {
	var out struct {
		Positions []Position `json:"positions"`
	}
	vars := map[string]interface{}{"owner": strings.ToLower(owner.Hex())}
	if err := c.Query(ctx, positionsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	return out.Positions, nil
}
