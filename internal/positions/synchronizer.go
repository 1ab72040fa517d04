package positions

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityStaker/internal/config"
	"liquidityStaker/internal/contracts"
	"liquidityStaker/internal/model"
	"liquidityStaker/internal/subgraph"
)

// NotEnrolledAdvisory marks a staked position that is not registered under
// the selected incentive.
const NotEnrolledAdvisory = "position is not staked in the selected incentive"

const defaultConcurrency = 8

// Options tunes a Synchronizer.
type Options struct {
	PollInterval time.Duration
	Concurrency  int
	Logger       *zap.Logger
	Now          func() time.Time
}

// Synchronizer maintains the position list of one owner under the selected
// incentive. Reconciliation passes replace the list wholesale; staking events
// patch the staked flag in between.
type Synchronizer struct {
	session      Session
	incentives   IncentiveSelector
	pollInterval time.Duration
	concurrency  int
	logger       *zap.Logger
	now          func() time.Time

	running atomic.Bool
	pending atomic.Bool
	closed  atomic.Bool

	mu        sync.RWMutex
	positions []model.Position
	claimable *big.Int
	observers []func(model.Snapshot)
	seq       uint64

	// deliverMu orders observer calls. delivered is the seq of the last
	// snapshot handed out; anything older is dropped.
	deliverMu sync.Mutex
	delivered uint64
}

// delivery is a snapshot taken under mu together with its place in the
// publish order.
type delivery struct {
	seq       uint64
	snap      model.Snapshot
	observers []func(model.Snapshot)
}

// New builds a synchronizer for session.
func New(session Session, incentives IncentiveSelector, opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{
		session:      session,
		incentives:   incentives,
		pollInterval: interval,
		concurrency:  concurrency,
		logger:       logger.With(zap.String("owner", session.Owner.Hex()), zap.String("network", session.Network.Name)),
		now:          now,
		positions:    []model.Position{},
		claimable:    new(big.Int),
	}
}

// Positions returns a copy of the published list, highest token id first.
func (s *Synchronizer) Positions() []model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.ClonePositions(s.positions)
}

// Claimable returns the owner's last observed claimable reward balance.
func (s *Synchronizer) Claimable() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.claimable)
}

// OnPublish registers fn to receive a snapshot after every publish or patch.
func (s *Synchronizer) OnPublish(fn func(model.Snapshot)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Close tears the synchronizer down. Work still in flight is discarded.
func (s *Synchronizer) Close() {
	s.closed.Store(true)
}

// Ready reports whether a reconciliation pass would run, and under which incentive.
func (s *Synchronizer) Ready() (model.Incentive, bool) {
	if s.closed.Load() {
		return model.Incentive{}, false
	}
	if s.session.Owner == (common.Address{}) || s.session.Manager == nil || s.session.Staking == nil || s.session.Subgraph == nil {
		return model.Incentive{}, false
	}
	if !s.session.Network.Enabled() {
		return model.Incentive{}, false
	}
	if s.incentives == nil {
		return model.Incentive{}, false
	}
	inc, ok := s.incentives.Current()
	if !ok || inc.Key.IsZero() {
		return model.Incentive{}, false
	}
	return inc, true
}

// Reconcile runs a full reconciliation pass. A call made while a pass is in
// flight returns immediately and makes the running pass repeat once more.
func (s *Synchronizer) Reconcile(ctx context.Context) {
	s.pending.Store(true)
	for s.pending.Load() {
		if !s.running.CompareAndSwap(false, true) {
			s.logger.Debug("reconciliation coalesced")
			return
		}
		for s.pending.Swap(false) {
			if ctx.Err() != nil || s.closed.Load() {
				break
			}
			s.reconcileOnce(ctx)
		}
		s.running.Store(false)
	}
}

func (s *Synchronizer) reconcileOnce(ctx context.Context) {
	inc, ok := s.Ready()
	if !ok {
		s.logger.Debug("skip reconciliation: preconditions not met")
		return
	}

	records, err := s.session.Subgraph.Positions(ctx, s.session.Owner)
	if err != nil {
		s.logger.Warn("fetch positions failed", zap.Error(err))
		return
	}

	results := make([]*model.Position, len(records))
	seen := make(map[uint64]struct{}, len(records))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, rec := range records {
		if !rec.TokenID.IsUint64() {
			s.logger.Warn("skip position with out-of-range token id", zap.String("id", rec.ID))
			continue
		}
		tokenID := rec.TokenID.Uint64()
		if _, dup := seen[tokenID]; dup {
			continue
		}
		seen[tokenID] = struct{}{}

		i, rec := i, rec
		g.Go(func() error {
			if pos, ok := s.readPosition(ctx, inc, tokenID, rec); ok {
				results[i] = &pos
			}
			return nil
		})
	}

	var claimable *big.Int
	g.Go(func() error {
		claimable = s.readClaimable(ctx)
		return nil
	})
	_ = g.Wait()

	list := make([]model.Position, 0, len(results))
	for _, pos := range results {
		if pos != nil {
			list = append(list, *pos)
		}
	}
	model.SortPositions(list)

	s.publish(ctx, inc.ID, list, claimable)
}

func (s *Synchronizer) readPosition(ctx context.Context, inc model.Incentive, tokenID uint64, rec subgraph.Position) (model.Position, bool) {
	logger := s.logger.With(zap.Uint64("token_id", tokenID))

	info, err := s.session.Manager.Positions(ctx, tokenID)
	if err != nil {
		logger.Warn("read position failed", zap.Error(err))
		return model.Position{}, false
	}
	if info.Liquidity == nil || info.Liquidity.Sign() == 0 {
		logger.Debug("skip position without liquidity")
		return model.Position{}, false
	}
	if !model.MatchesPair(info.Token0, info.Token1, s.session.Network.RewardTokenAddress(), s.session.Network.PairTokenAddress()) {
		logger.Debug("skip position outside configured pair")
		return model.Position{}, false
	}

	owner := s.session.Owner
	if common.IsHexAddress(rec.Owner) {
		owner = common.HexToAddress(rec.Owner)
	}
	pos := model.Position{
		TokenID: tokenID,
		Owner:   owner,
		Token0:  info.Token0,
		Token1:  info.Token1,
		Staked:  rec.Staked,
		Reward:  new(big.Int),
	}
	if !pos.Staked {
		return pos, true
	}

	reward, err := s.session.Staking.GetRewardInfo(ctx, inc.Key, tokenID)
	switch {
	case err == nil:
		if reward.Reward != nil {
			pos.Reward.Set(reward.Reward)
		}
	case contracts.IsStakeNotFound(err):
		pos.Error = NotEnrolledAdvisory
	default:
		logger.Warn("read reward info failed", zap.String("incentive_id", inc.ID), zap.Error(err))
	}
	return pos, true
}

// readClaimable returns nil when the balance could not be read.
func (s *Synchronizer) readClaimable(ctx context.Context) *big.Int {
	amount, err := s.session.Staking.Rewards(ctx, s.session.Network.RewardTokenAddress(), s.session.Owner)
	if err != nil {
		s.logger.Warn("read claimable reward failed", zap.Error(err))
		return nil
	}
	if amount == nil {
		return new(big.Int)
	}
	return amount
}

// RefreshClaimable re-reads the claimable balance outside of a pass.
func (s *Synchronizer) RefreshClaimable(ctx context.Context) {
	if _, ok := s.Ready(); !ok {
		return
	}
	amount := s.readClaimable(ctx)
	if amount == nil || !s.live(ctx) {
		return
	}
	s.mu.Lock()
	if s.claimable.Cmp(amount) == 0 {
		s.mu.Unlock()
		return
	}
	s.claimable = amount
	d := s.snapshotLocked(s.incentives.CurrentID())
	s.mu.Unlock()
	s.deliver(d)
}

func (s *Synchronizer) live(ctx context.Context) bool {
	return ctx.Err() == nil && !s.closed.Load()
}

func (s *Synchronizer) publish(ctx context.Context, incentiveID string, list []model.Position, claimable *big.Int) {
	if !s.live(ctx) {
		s.logger.Debug("discard reconciliation result after teardown")
		return
	}
	if !model.SameIncentiveID(incentiveID, s.incentives.CurrentID()) {
		s.logger.Debug("discard reconciliation result for stale incentive", zap.String("incentive_id", incentiveID))
		s.pending.Store(true)
		return
	}

	s.mu.Lock()
	s.positions = list
	if claimable != nil {
		s.claimable = claimable
	}
	d := s.snapshotLocked(incentiveID)
	s.mu.Unlock()

	s.logger.Info("positions published", zap.Int("count", len(list)), zap.String("incentive_id", incentiveID))
	s.deliver(d)
}

// Apply patches the published list with a staking event. Only the staked flag
// changes, and only for events of the selected incentive. It reports whether
// the list changed.
func (s *Synchronizer) Apply(ctx context.Context, ev contracts.StakeEvent) bool {
	if ev.Removed || s.incentives == nil || !s.live(ctx) {
		return false
	}

	switch ev.Kind {
	case contracts.EventTokenStaked, contracts.EventTokenUnstaked:
	case contracts.EventRewardClaimed:
		if ev.Recipient == s.session.Owner {
			s.RefreshClaimable(ctx)
		}
		return false
	default:
		return false
	}

	currentID := s.incentives.CurrentID()
	if !model.SameIncentiveID(ev.IncentiveID.Hex(), currentID) {
		s.logger.Debug("ignore event for other incentive",
			zap.String("event", string(ev.Kind)),
			zap.String("incentive_id", ev.IncentiveID.Hex()),
		)
		return false
	}

	staked := ev.Kind == contracts.EventTokenStaked
	patched := false
	s.mu.Lock()
	for i := range s.positions {
		if s.positions[i].TokenID == ev.TokenID && s.positions[i].Staked != staked {
			next := model.ClonePositions(s.positions)
			next[i].Staked = staked
			s.positions = next
			patched = true
			break
		}
	}
	var d delivery
	if patched {
		d = s.snapshotLocked(currentID)
	}
	s.mu.Unlock()

	if patched {
		s.logger.Debug("position patched", zap.Uint64("token_id", ev.TokenID), zap.Bool("staked", staked))
		s.deliver(d)
	}
	if ev.Kind == contracts.EventTokenUnstaked {
		s.RefreshClaimable(ctx)
	}
	return patched
}

func (s *Synchronizer) snapshotLocked(incentiveID string) delivery {
	s.seq++
	snap := model.Snapshot{
		Network:     s.session.Network.Name,
		ChainID:     s.session.Network.ChainID,
		Owner:       s.session.Owner.Hex(),
		IncentiveID: incentiveID,
		Positions:   model.ClonePositions(s.positions),
		Claimable:   new(big.Int).Set(s.claimable),
		TakenAt:     s.now().UTC(),
	}
	observers := make([]func(model.Snapshot), len(s.observers))
	copy(observers, s.observers)
	return delivery{seq: s.seq, snap: snap, observers: observers}
}

// deliver hands d to its observers unless a newer snapshot already went out.
func (s *Synchronizer) deliver(d delivery) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if d.seq <= s.delivered {
		s.logger.Debug("drop superseded snapshot", zap.Uint64("seq", d.seq), zap.Uint64("delivered", s.delivered))
		return
	}
	s.delivered = d.seq
	for _, fn := range d.observers {
		fn(d.snap)
	}
}
