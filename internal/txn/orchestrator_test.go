package txn

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityStaker/internal/model"
	"liquidityStaker/internal/notify"
)

var (
	ownerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stakingAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	rewardToken = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	testKey     = model.IncentiveKey{
		RewardToken: rewardToken,
		Pool:        common.HexToAddress("0x00000000000000000000000000000000000000d4"),
		StartTime:   10,
		EndTime:     20,
		Refundee:    ownerAddr,
	}
)

type fakeSigner struct {
	addr common.Address
}

func (f fakeSigner) Address() common.Address { return f.addr }

func (f fakeSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: f.addr, Context: ctx}, nil
}

type selector struct {
	inc model.Incentive
	ok  bool
}

func (s selector) Current() (model.Incentive, bool) { return s.inc, s.ok }

type call struct {
	method  string
	busy    string
	tokenID uint64
	from    common.Address
	to      common.Address
	key     model.IncentiveKey
	amount  *big.Int
}

type fakeContracts struct {
	orch    *Orchestrator
	calls   []call
	err     error
	panics  bool
	rewards []*big.Int
	readErr error
	reads   int
}

func (f *fakeContracts) record(c call) (*types.Transaction, error) {
	c.busy = f.orch.Busy()
	f.calls = append(f.calls, c)
	if f.panics {
		panic("node exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(f.calls)), Gas: 1, GasPrice: big.NewInt(1), Value: big.NewInt(0)}), nil
}

func (f *fakeContracts) Address() common.Address { return stakingAddr }

func (f *fakeContracts) Approve(opts *bind.TransactOpts, spender common.Address, tokenID uint64) (*types.Transaction, error) {
	return f.record(call{method: "approve", tokenID: tokenID, to: spender})
}

func (f *fakeContracts) SafeTransferFrom(opts *bind.TransactOpts, from, to common.Address, tokenID uint64) (*types.Transaction, error) {
	return f.record(call{method: "safeTransferFrom", tokenID: tokenID, from: from, to: to})
}

func (f *fakeContracts) Rewards(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	amount := f.rewards[f.reads%len(f.rewards)]
	f.reads++
	return new(big.Int).Set(amount), nil
}

func (f *fakeContracts) StakeToken(opts *bind.TransactOpts, key model.IncentiveKey, tokenID uint64) (*types.Transaction, error) {
	return f.record(call{method: "stakeToken", tokenID: tokenID, key: key})
}

func (f *fakeContracts) UnstakeToken(opts *bind.TransactOpts, key model.IncentiveKey, tokenID uint64) (*types.Transaction, error) {
	return f.record(call{method: "unstakeToken", tokenID: tokenID, key: key})
}

func (f *fakeContracts) ClaimReward(opts *bind.TransactOpts, token, recipient common.Address, amount *big.Int) (*types.Transaction, error) {
	return f.record(call{method: "claimReward", to: recipient, amount: new(big.Int).Set(amount)})
}

func (f *fakeContracts) WithdrawToken(opts *bind.TransactOpts, tokenID uint64, recipient common.Address, data []byte) (*types.Transaction, error) {
	return f.record(call{method: "withdrawToken", tokenID: tokenID, to: recipient})
}

type confirmer struct {
	status uint64
}

func (c confirmer) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: c.status, BlockNumber: big.NewInt(1)}, nil
}

type sinkLog struct {
	kinds []model.NotificationKind
}

func (s *sinkLog) Notify(n model.Notification) { s.kinds = append(s.kinds, n.Kind()) }

type harness struct {
	orch      *Orchestrator
	contracts *fakeContracts
	sink      *sinkLog
}

func newHarness(status uint64, sel selector) *harness {
	fc := &fakeContracts{rewards: []*big.Int{big.NewInt(7)}}
	sink := &sinkLog{}
	orch := New(Deps{
		Signer:     fakeSigner{addr: ownerAddr},
		Manager:    fc,
		Staking:    fc,
		Incentives: sel,
		Tracker:    notify.NewTracker(sink, confirmer{status: status}, nil, nil),
	}, nil)
	fc.orch = orch
	return &harness{orch: orch, contracts: fc, sink: sink}
}

var withIncentive = selector{inc: model.Incentive{ID: testKey.ID().Hex(), Key: testKey}, ok: true}

type action struct {
	name    string
	working string
	method  string
	invoke  func(o *Orchestrator, next func())
}

var actions = []action{
	{"approve", LabelApproving, "approve", func(o *Orchestrator, next func()) { o.Approve(context.Background(), 42, next) }},
	{"transfer", LabelTransferring, "safeTransferFrom", func(o *Orchestrator, next func()) { o.Transfer(context.Background(), 42, next) }},
	{"stake", LabelStaking, "stakeToken", func(o *Orchestrator, next func()) { o.Stake(context.Background(), 42, next) }},
	{"unstake", LabelUnstaking, "unstakeToken", func(o *Orchestrator, next func()) { o.Unstake(context.Background(), 42, next) }},
	{"claim", LabelClaiming, "claimReward", func(o *Orchestrator, next func()) { o.Claim(context.Background(), 42, next) }},
	{"withdraw", LabelWithdrawing, "withdrawToken", func(o *Orchestrator, next func()) { o.Withdraw(context.Background(), 42, next) }},
}

func TestActionsSubmitAndContinue(t *testing.T) {
	for _, a := range actions {
		t.Run(a.name, func(t *testing.T) {
			h := newHarness(types.ReceiptStatusSuccessful, withIncentive)
			nextCalls := 0
			a.invoke(h.orch, func() {
				nextCalls++
				assert.Equal(t, a.working, h.orch.Busy())
			})

			require.Len(t, h.contracts.calls, 1)
			got := h.contracts.calls[0]
			assert.Equal(t, a.method, got.method)
			assert.Equal(t, a.working, got.busy)
			assert.Equal(t, 1, nextCalls)
			assert.Equal(t, "", h.orch.Busy())
			assert.Equal(t, []model.NotificationKind{model.KindTxPending, model.KindTxSuccess}, h.sink.kinds)
		})
	}
}

func TestActionArguments(t *testing.T) {
	h := newHarness(types.ReceiptStatusSuccessful, withIncentive)
	for _, a := range actions {
		a.invoke(h.orch, nil)
	}
	require.Len(t, h.contracts.calls, len(actions))

	byMethod := map[string]call{}
	for _, c := range h.contracts.calls {
		byMethod[c.method] = c
	}
	assert.Equal(t, stakingAddr, byMethod["approve"].to)
	assert.Equal(t, ownerAddr, byMethod["safeTransferFrom"].from)
	assert.Equal(t, stakingAddr, byMethod["safeTransferFrom"].to)
	assert.Equal(t, testKey, byMethod["stakeToken"].key)
	assert.Equal(t, testKey, byMethod["unstakeToken"].key)
	assert.Equal(t, ownerAddr, byMethod["claimReward"].to)
	assert.Equal(t, ownerAddr, byMethod["withdrawToken"].to)
	assert.Equal(t, uint64(42), byMethod["withdrawToken"].tokenID)
}

func TestActionsClearBusyOnSubmitError(t *testing.T) {
	for _, a := range actions {
		t.Run(a.name, func(t *testing.T) {
			h := newHarness(types.ReceiptStatusSuccessful, withIncentive)
			h.contracts.err = errors.New("user denied transaction signature")

			called := false
			a.invoke(h.orch, func() { called = true })

			require.Len(t, h.contracts.calls, 1)
			assert.Equal(t, a.working, h.contracts.calls[0].busy)
			assert.False(t, called)
			assert.Equal(t, "", h.orch.Busy())
			assert.Equal(t, []model.NotificationKind{model.KindTxError}, h.sink.kinds)
		})
	}
}

func TestActionsClearBusyOnPanic(t *testing.T) {
	for _, a := range actions {
		t.Run(a.name, func(t *testing.T) {
			h := newHarness(types.ReceiptStatusSuccessful, withIncentive)
			h.contracts.panics = true

			called := false
			assert.NotPanics(t, func() { a.invoke(h.orch, func() { called = true }) })
			assert.False(t, called)
			assert.Equal(t, "", h.orch.Busy())
		})
	}
}

func TestActionsClearBusyOnRevert(t *testing.T) {
	for _, a := range actions {
		t.Run(a.name, func(t *testing.T) {
			h := newHarness(types.ReceiptStatusFailed, withIncentive)

			called := false
			a.invoke(h.orch, func() { called = true })

			assert.False(t, called)
			assert.Equal(t, "", h.orch.Busy())
			assert.Equal(t, []model.NotificationKind{model.KindTxPending, model.KindTxError}, h.sink.kinds)
		})
	}
}

func TestActionsWithoutIncentiveAreNoops(t *testing.T) {
	h := newHarness(types.ReceiptStatusSuccessful, selector{})
	called := 0
	for _, a := range actions {
		a.invoke(h.orch, func() { called++ })
	}

	require.Len(t, h.contracts.calls, 1)
	assert.Equal(t, "withdrawToken", h.contracts.calls[0].method)
	assert.Equal(t, 1, called)
	assert.Zero(t, h.contracts.reads)
}

func TestActionsWithoutAccountAreNoops(t *testing.T) {
	fc := &fakeContracts{rewards: []*big.Int{big.NewInt(1)}}
	orch := New(Deps{
		Signer:     fakeSigner{},
		Manager:    fc,
		Staking:    fc,
		Incentives: withIncentive,
		Tracker:    notify.NewTracker(nil, confirmer{status: types.ReceiptStatusSuccessful}, nil, nil),
	}, nil)
	fc.orch = orch

	orch.Transfer(context.Background(), 1, nil)
	orch.Claim(context.Background(), 1, nil)
	orch.Withdraw(context.Background(), 1, nil)
	assert.Empty(t, fc.calls)

	bare := New(Deps{}, nil)
	for _, a := range actions {
		assert.NotPanics(t, func() { a.invoke(bare, nil) })
	}
	assert.Equal(t, "", bare.Busy())
}

func TestClaimSpendsFreshRead(t *testing.T) {
	h := newHarness(types.ReceiptStatusSuccessful, withIncentive)
	h.contracts.rewards = []*big.Int{big.NewInt(100), big.NewInt(250)}

	h.orch.Claim(context.Background(), 1, nil)
	h.orch.Claim(context.Background(), 1, nil)

	require.Len(t, h.contracts.calls, 2)
	assert.Equal(t, "100", h.contracts.calls[0].amount.String())
	assert.Equal(t, "250", h.contracts.calls[1].amount.String())
	assert.Equal(t, 2, h.contracts.reads)
}

func TestClaimReadFailureClearsBusy(t *testing.T) {
	h := newHarness(types.ReceiptStatusSuccessful, withIncentive)
	h.contracts.readErr = errors.New("rpc unavailable")

	called := false
	h.orch.Claim(context.Background(), 1, func() { called = true })

	assert.Empty(t, h.contracts.calls)
	assert.False(t, called)
	assert.Equal(t, "", h.orch.Busy())
}
