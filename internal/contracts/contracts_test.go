package contracts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityStaker/internal/model"
)

// fakeBackend answers eth_call by method selector.
type fakeBackend struct {
	bind.ContractBackend
	responses map[[4]byte][]byte
	errs      map[[4]byte]error
	calls     [][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: make(map[[4]byte][]byte),
		errs:      make(map[[4]byte]error),
	}
}

func (f *fakeBackend) on(method abi.Method, out []byte) {
	var sel [4]byte
	copy(sel[:], method.ID)
	f.responses[sel] = out
}

func (f *fakeBackend) fail(method abi.Method, err error) {
	var sel [4]byte
	copy(sel[:], method.ID)
	f.errs[sel] = err
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg.Data)
	var sel [4]byte
	copy(sel[:], msg.Data[:4])
	if err, ok := f.errs[sel]; ok {
		return nil, err
	}
	if out, ok := f.responses[sel]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("no response for selector %x", sel)
}

type revertError struct {
	data string
}

func (e revertError) Error() string          { return "execution reverted" }
func (e revertError) ErrorData() interface{} { return e.data }

func revertData(t *testing.T, reason string) string {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

var (
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestPositionsDecodesOnChainState(t *testing.T) {
	parsed, err := PositionManagerABI()
	require.NoError(t, err)

	backend := newFakeBackend()
	out, err := parsed.Methods["positions"].Outputs.Pack(
		big.NewInt(0),
		common.Address{},
		tokenA,
		tokenB,
		big.NewInt(10000),
		big.NewInt(-887200),
		big.NewInt(887200),
		big.NewInt(123456789),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
	)
	require.NoError(t, err)
	backend.on(parsed.Methods["positions"], out)

	pm, err := NewPositionManager(common.HexToAddress("0x01"), backend)
	require.NoError(t, err)

	info, err := pm.Positions(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, tokenA, info.Token0)
	assert.Equal(t, tokenB, info.Token1)
	assert.Equal(t, uint32(10000), info.Fee)
	assert.Equal(t, int32(-887200), info.TickLower)
	assert.Equal(t, int32(887200), info.TickUpper)
	assert.Equal(t, "123456789", info.Liquidity.String())

	require.Len(t, backend.calls, 1)
	assert.Equal(t, common.LeftPadBytes(big.NewInt(42).Bytes(), 32), backend.calls[0][4:36])
}

func TestGetRewardInfo(t *testing.T) {
	parsed, err := StakingRewardsABI()
	require.NoError(t, err)

	backend := newFakeBackend()
	out, err := parsed.Methods["getRewardInfo"].Outputs.Pack(big.NewInt(5000), big.NewInt(7))
	require.NoError(t, err)
	backend.on(parsed.Methods["getRewardInfo"], out)

	staking, err := NewStakingRewards(common.HexToAddress("0x02"), backend)
	require.NoError(t, err)

	key := model.IncentiveKey{RewardToken: tokenA, Pool: tokenB, StartTime: 1, EndTime: 2, Refundee: tokenA}
	info, err := staking.GetRewardInfo(context.Background(), key, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), info.Reward.Int64())
}

func TestGetRewardInfoStakeNotFound(t *testing.T) {
	parsed, err := StakingRewardsABI()
	require.NoError(t, err)

	backend := newFakeBackend()
	backend.fail(parsed.Methods["getRewardInfo"], revertError{data: revertData(t, "UniswapV3Staker::getRewardInfo: stake does not exist")})

	staking, err := NewStakingRewards(common.HexToAddress("0x02"), backend)
	require.NoError(t, err)

	_, err = staking.GetRewardInfo(context.Background(), model.IncentiveKey{RewardToken: tokenA}, 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStakeNotFound))
}

func TestGetRewardInfoOtherFailure(t *testing.T) {
	parsed, err := StakingRewardsABI()
	require.NoError(t, err)

	backend := newFakeBackend()
	backend.fail(parsed.Methods["getRewardInfo"], errors.New("connection refused"))

	staking, err := NewStakingRewards(common.HexToAddress("0x02"), backend)
	require.NoError(t, err)

	_, err = staking.GetRewardInfo(context.Background(), model.IncentiveKey{RewardToken: tokenA}, 9)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStakeNotFound))
}

func TestRewards(t *testing.T) {
	parsed, err := StakingRewardsABI()
	require.NoError(t, err)

	backend := newFakeBackend()
	amount, _ := new(big.Int).SetString("1000000000000000000000", 10)
	out, err := parsed.Methods["rewards"].Outputs.Pack(amount)
	require.NoError(t, err)
	backend.on(parsed.Methods["rewards"], out)

	staking, err := NewStakingRewards(common.HexToAddress("0x02"), backend)
	require.NoError(t, err)

	got, err := staking.Rewards(context.Background(), tokenA, tokenB)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(got))
}

func TestIsStakeNotFoundFromMessage(t *testing.T) {
	assert.True(t, IsStakeNotFound(errors.New("execution reverted: UniswapV3Staker::getRewardInfo: stake does not exist")))
	assert.False(t, IsStakeNotFound(errors.New("execution reverted")))
	assert.False(t, IsStakeNotFound(nil))
}

func TestRevertReason(t *testing.T) {
	reason, ok := RevertReason(fmt.Errorf("call: %w", revertError{data: revertData(t, "boom")}))
	require.True(t, ok)
	assert.Equal(t, "boom", reason)

	_, ok = RevertReason(errors.New("plain"))
	assert.False(t, ok)
}

func TestDecodeStakeEvents(t *testing.T) {
	parsed, err := StakingRewardsABI()
	require.NoError(t, err)

	incentiveID := common.HexToHash("0x1234")
	tokenTopic := common.BigToHash(big.NewInt(7))

	data, err := parsed.Events["TokenStaked"].Inputs.NonIndexed().Pack(big.NewInt(99))
	require.NoError(t, err)
	staked, err := DecodeStakeEvent(types.Log{
		Topics: []common.Hash{parsed.Events["TokenStaked"].ID, tokenTopic, incentiveID},
		Data:   data,
	})
	require.NoError(t, err)
	assert.Equal(t, EventTokenStaked, staked.Kind)
	assert.Equal(t, uint64(7), staked.TokenID)
	assert.Equal(t, incentiveID, staked.IncentiveID)
	assert.Equal(t, int64(99), staked.Liquidity.Int64())

	unstaked, err := DecodeStakeEvent(types.Log{
		Topics: []common.Hash{parsed.Events["TokenUnstaked"].ID, tokenTopic, incentiveID},
	})
	require.NoError(t, err)
	assert.Equal(t, EventTokenUnstaked, unstaked.Kind)
	assert.Equal(t, uint64(7), unstaked.TokenID)

	claimData, err := parsed.Events["RewardClaimed"].Inputs.NonIndexed().Pack(big.NewInt(55))
	require.NoError(t, err)
	claimed, err := DecodeStakeEvent(types.Log{
		Topics: []common.Hash{parsed.Events["RewardClaimed"].ID, common.BytesToHash(tokenA.Bytes())},
		Data:   claimData,
	})
	require.NoError(t, err)
	assert.Equal(t, EventRewardClaimed, claimed.Kind)
	assert.Equal(t, tokenA, claimed.Recipient)
	assert.Equal(t, int64(55), claimed.Reward.Int64())

	_, err = DecodeStakeEvent(types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	assert.Error(t, err)
	_, err = DecodeStakeEvent(types.Log{Topics: []common.Hash{parsed.Events["TokenStaked"].ID}})
	assert.Error(t, err)
}

func TestFetchTokenMeta(t *testing.T) {
	parsed, err := erc20ABIStringInstance()
	require.NoError(t, err)

	backend := newFakeBackend()
	decimals, err := parsed.Methods["decimals"].Outputs.Pack(uint8(18))
	require.NoError(t, err)
	symbol, err := parsed.Methods["symbol"].Outputs.Pack("MARK")
	require.NoError(t, err)
	backend.on(parsed.Methods["decimals"], decimals)
	backend.on(parsed.Methods["symbol"], symbol)

	cache := NewTokenMetaCache()
	meta, err := cache.Lookup(context.Background(), backend, tokenA, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), meta.Decimals)
	assert.Equal(t, "MARK", meta.Symbol)

	calls := len(backend.calls)
	_, err = cache.Lookup(context.Background(), backend, tokenA, nil)
	require.NoError(t, err)
	assert.Equal(t, calls, len(backend.calls), "second lookup is served from cache")
}

func TestBytes32ToString(t *testing.T) {
	var raw [32]byte
	copy(raw[:], "MKR")
	s, ok := bytes32ToString(raw)
	require.True(t, ok)
	assert.Equal(t, "MKR", s)
	assert.False(t, bytes.Contains([]byte(s), []byte{0}))
}
