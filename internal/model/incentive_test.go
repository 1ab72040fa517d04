package model

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func testKey() IncentiveKey {
	return IncentiveKey{
		RewardToken: common.HexToAddress("0x4343d80ef5808490a079aa0907ffdc9373c7a4dd"),
		Pool:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		StartTime:   1700000000,
		EndTime:     1710000000,
		Refundee:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}
}

func TestIncentiveKeyIDMatchesABIEncoding(t *testing.T) {
	key := testKey()

	// A static tuple encodes as five left-padded words.
	var words []byte
	words = append(words, common.LeftPadBytes(key.RewardToken.Bytes(), 32)...)
	words = append(words, common.LeftPadBytes(key.Pool.Bytes(), 32)...)
	words = append(words, common.LeftPadBytes(big.NewInt(int64(key.StartTime)).Bytes(), 32)...)
	words = append(words, common.LeftPadBytes(big.NewInt(int64(key.EndTime)).Bytes(), 32)...)
	words = append(words, common.LeftPadBytes(key.Refundee.Bytes(), 32)...)

	packed, err := incentiveKeyArgs.Pack(key.Tuple())
	require.NoError(t, err)
	require.Equal(t, words, packed)
	require.Equal(t, crypto.Keccak256Hash(words), key.ID())
}

func TestIncentiveKeyIDChangesWithFields(t *testing.T) {
	a := testKey()
	b := testKey()
	b.EndTime++
	require.NotEqual(t, a.ID(), b.ID())
	require.False(t, a.IsZero())
	require.True(t, IncentiveKey{}.IsZero())
}

func TestSameIncentiveID(t *testing.T) {
	require.True(t, SameIncentiveID("0xABCDEF", "0xabcdef"))
	require.False(t, SameIncentiveID("0xabc", "0xabd"))
	require.False(t, SameIncentiveID("", ""))
}
