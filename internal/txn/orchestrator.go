package txn

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityStaker/internal/model"
	"liquidityStaker/internal/notify"
)

// Busy labels. Each action shows the first while in flight and the second on success.
const (
	LabelApproving    = "Approving"
	LabelApproved     = "Approved"
	LabelTransferring = "Transferring"
	LabelTransferred  = "Transferred"
	LabelStaking      = "Staking"
	LabelStaked       = "Staked"
	LabelUnstaking    = "Unstaking"
	LabelUnstaked     = "Unstaked"
	LabelClaiming     = "Claiming"
	LabelClaimed      = "Claimed"
	LabelWithdrawing  = "Withdrawing"
	LabelWithdrew     = "Withdrew"
)

// Signer is the connected account.
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// PositionManager is the write surface of the position NFT contract.
type PositionManager interface {
	Approve(opts *bind.TransactOpts, spender common.Address, tokenID uint64) (*types.Transaction, error)
	SafeTransferFrom(opts *bind.TransactOpts, from, to common.Address, tokenID uint64) (*types.Transaction, error)
}

// Staking is the surface of the staking contract used by actions.
type Staking interface {
	Address() common.Address
	Rewards(ctx context.Context, rewardToken, owner common.Address) (*big.Int, error)
	StakeToken(opts *bind.TransactOpts, key model.IncentiveKey, tokenID uint64) (*types.Transaction, error)
	UnstakeToken(opts *bind.TransactOpts, key model.IncentiveKey, tokenID uint64) (*types.Transaction, error)
	ClaimReward(opts *bind.TransactOpts, rewardToken, recipient common.Address, amount *big.Int) (*types.Transaction, error)
	WithdrawToken(opts *bind.TransactOpts, tokenID uint64, recipient common.Address, data []byte) (*types.Transaction, error)
}

// IncentiveSelector exposes the currently selected incentive.
type IncentiveSelector interface {
	Current() (model.Incentive, bool)
}

// Tracker submits a transaction and reports its progress.
type Tracker interface {
	Tx(ctx context.Context, pending, success string, submit notify.SubmitFunc) (*types.Receipt, error)
}

// Deps are the collaborators of an Orchestrator. Any of them may be nil;
// actions whose dependencies are missing do nothing.
type Deps struct {
	Signer     Signer
	Manager    PositionManager
	Staking    Staking
	Incentives IncentiveSelector
	Tracker    Tracker
}

// Orchestrator runs user actions against the staking and position contracts.
// Failures are logged and reported through the tracker, never returned.
// Callers should not start an action while Busy is non-empty.
type Orchestrator struct {
	deps   Deps
	logger *zap.Logger

	mu   sync.RWMutex
	busy string
}

// New builds an orchestrator.
func New(deps Deps, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps, logger: logger}
}

// Busy returns the label of the action in flight, or "" when idle.
func (o *Orchestrator) Busy() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.busy
}

func (o *Orchestrator) setBusy(label string) {
	o.mu.Lock()
	o.busy = label
	o.mu.Unlock()
}

func (o *Orchestrator) address() (common.Address, bool) {
	if o.deps.Signer == nil {
		return common.Address{}, false
	}
	addr := o.deps.Signer.Address()
	return addr, addr != (common.Address{})
}

func (o *Orchestrator) incentive() (model.Incentive, bool) {
	if o.deps.Incentives == nil {
		return model.Incentive{}, false
	}
	inc, ok := o.deps.Incentives.Current()
	if !ok || inc.Key.IsZero() {
		return model.Incentive{}, false
	}
	return inc, true
}

func (o *Orchestrator) ready() bool {
	return o.deps.Signer != nil && o.deps.Tracker != nil
}

// Approve lets the staking contract transfer tokenID.
func (o *Orchestrator) Approve(ctx context.Context, tokenID uint64, next func()) {
	if !o.ready() || o.deps.Manager == nil || o.deps.Staking == nil {
		return
	}
	if _, ok := o.incentive(); !ok {
		return
	}
	o.run(ctx, tokenID, LabelApproving, LabelApproved, next, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return o.deps.Manager.Approve(opts, o.deps.Staking.Address(), tokenID)
	})
}

// Transfer moves tokenID into the staking contract's custody.
func (o *Orchestrator) Transfer(ctx context.Context, tokenID uint64, next func()) {
	if !o.ready() || o.deps.Manager == nil || o.deps.Staking == nil {
		return
	}
	owner, ok := o.address()
	if !ok {
		return
	}
	if _, ok := o.incentive(); !ok {
		return
	}
	o.run(ctx, tokenID, LabelTransferring, LabelTransferred, next, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return o.deps.Manager.SafeTransferFrom(opts, owner, o.deps.Staking.Address(), tokenID)
	})
}

// Stake registers a custodied tokenID under the selected incentive.
func (o *Orchestrator) Stake(ctx context.Context, tokenID uint64, next func()) {
	if !o.ready() || o.deps.Staking == nil {
		return
	}
	inc, ok := o.incentive()
	if !ok {
		return
	}
	o.run(ctx, tokenID, LabelStaking, LabelStaked, next, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return o.deps.Staking.StakeToken(opts, inc.Key, tokenID)
	})
}

// Unstake deregisters tokenID from the selected incentive.
func (o *Orchestrator) Unstake(ctx context.Context, tokenID uint64, next func()) {
	if !o.ready() || o.deps.Staking == nil {
		return
	}
	inc, ok := o.incentive()
	if !ok {
		return
	}
	o.run(ctx, tokenID, LabelUnstaking, LabelUnstaked, next, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return o.deps.Staking.UnstakeToken(opts, inc.Key, tokenID)
	})
}

// Claim reads the owner's claimable balance of the selected incentive's
// reward token and claims exactly that amount. Reward accrued between the
// read and inclusion stays claimable. tokenID only identifies the position
// the action was started from.
func (o *Orchestrator) Claim(ctx context.Context, tokenID uint64, next func()) {
	if !o.ready() || o.deps.Staking == nil {
		return
	}
	inc, ok := o.incentive()
	if !ok {
		return
	}
	owner, ok := o.address()
	if !ok {
		return
	}

	o.setBusy(LabelClaiming)
	defer o.setBusy("")
	defer o.recoverAction(LabelClaiming, tokenID)

	rewardToken := inc.Key.RewardToken
	amount, err := o.deps.Staking.Rewards(ctx, rewardToken, owner)
	if err != nil {
		o.logger.Warn("read claimable reward failed", zap.Uint64("token_id", tokenID), zap.Error(err))
		return
	}
	if amount == nil {
		amount = new(big.Int)
	}

	o.track(ctx, tokenID, LabelClaiming, LabelClaimed, next, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return o.deps.Staking.ClaimReward(opts, rewardToken, owner, amount)
	})
}

// Withdraw returns tokenID from the staking contract to the owner.
func (o *Orchestrator) Withdraw(ctx context.Context, tokenID uint64, next func()) {
	if !o.ready() || o.deps.Staking == nil {
		return
	}
	owner, ok := o.address()
	if !ok {
		return
	}
	o.run(ctx, tokenID, LabelWithdrawing, LabelWithdrew, next, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return o.deps.Staking.WithdrawToken(opts, tokenID, owner, []byte{})
	})
}

type sendFunc func(opts *bind.TransactOpts) (*types.Transaction, error)

func (o *Orchestrator) run(ctx context.Context, tokenID uint64, working, done string, next func(), send sendFunc) {
	o.setBusy(working)
	defer o.setBusy("")
	defer o.recoverAction(working, tokenID)

	o.track(ctx, tokenID, working, done, next, send)
}

func (o *Orchestrator) track(ctx context.Context, tokenID uint64, working, done string, next func(), send sendFunc) {
	_, err := o.deps.Tracker.Tx(ctx, working, done, func(ctx context.Context) (*types.Transaction, error) {
		opts, err := o.deps.Signer.TransactOpts(ctx)
		if err != nil {
			return nil, err
		}
		return send(opts)
	})
	if err != nil {
		o.logger.Warn("transaction failed", zap.String("action", working), zap.Uint64("token_id", tokenID), zap.Error(err))
		return
	}
	if next != nil {
		next()
	}
}

func (o *Orchestrator) recoverAction(action string, tokenID uint64) {
	if r := recover(); r != nil {
		o.logger.Error("action panicked", zap.String("action", action), zap.Uint64("token_id", tokenID), zap.String("panic", fmt.Sprint(r)))
	}
}
