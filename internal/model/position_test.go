package model

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortPositionsDescending(t *testing.T) {
	positions := []Position{{TokenID: 3}, {TokenID: 10}, {TokenID: 1}}
	SortPositions(positions)

	ids := make([]uint64, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.TokenID)
	}
	require.Equal(t, []uint64{10, 3, 1}, ids)
}

func TestMatchesPairEitherOrder(t *testing.T) {
	a := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	c := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	assert.True(t, MatchesPair(a, b, a, b))
	assert.True(t, MatchesPair(b, a, a, b))
	assert.False(t, MatchesPair(a, c, a, b))
	assert.False(t, MatchesPair(a, a, a, b))
}

func TestPositionCloneIsDeep(t *testing.T) {
	original := Position{TokenID: 1, Reward: big.NewInt(5)}
	clone := original.Clone()
	clone.Reward.SetInt64(9)

	require.Equal(t, int64(5), original.Reward.Int64())

	nilReward := Position{TokenID: 2}.Clone()
	require.NotNil(t, nilReward.Reward)
	require.Zero(t, nilReward.Reward.Sign())
}

func TestFormatUnits(t *testing.T) {
	amount, ok := new(big.Int).SetString("1234567890000000000", 10)
	require.True(t, ok)

	assert.Equal(t, "1.23", FormatUnits(amount, 18, 2))
	assert.Equal(t, "1", FormatUnits(amount, 18, 0))
	assert.Equal(t, "0.00", FormatUnits(nil, 18, 2))
}
