package incentive

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityStaker/internal/model"
	"liquidityStaker/internal/subgraph"
)

// Source lists the incentives paying a reward token, most recently ending first.
type Source interface {
	Incentives(ctx context.Context, rewardToken common.Address) ([]subgraph.Incentive, error)
}

// SourceFactory returns a Source for a subgraph endpoint.
type SourceFactory func(endpoint string) Source

// Registry holds the incentives known for the active network and the
// currently selected one.
type Registry struct {
	sources SourceFactory
	logger  *zap.Logger

	mu         sync.RWMutex
	incentives []model.Incentive
	currentID  string
	changes    chan struct{}
}

// NewRegistry builds a registry that queries through sources.
func NewRegistry(sources SourceFactory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sources: sources,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}
}

// Reload queries the incentives for rewardToken on network. The collection is
// replaced only when the query succeeds with at least one incentive; the
// current selection then moves to the first one. Failures are logged and the
// previous collection is kept.
func (r *Registry) Reload(ctx context.Context, network string, rewardToken common.Address, endpoint string) {
	if strings.TrimSpace(network) == "" || rewardToken == (common.Address{}) || strings.TrimSpace(endpoint) == "" {
		r.logger.Debug("skip incentive reload", zap.String("network", network), zap.String("endpoint", endpoint))
		return
	}

	raw, err := r.sources(endpoint).Incentives(ctx, rewardToken)
	if err != nil {
		r.logger.Warn("load incentives failed", zap.String("network", network), zap.Error(err))
		return
	}

	loaded := make([]model.Incentive, 0, len(raw))
	for _, item := range raw {
		inc, err := item.Model()
		if err != nil {
			r.logger.Warn("skip malformed incentive", zap.String("incentive_id", item.ID), zap.Error(err))
			continue
		}
		loaded = append(loaded, inc)
	}
	if len(loaded) == 0 {
		r.logger.Info("no incentives found", zap.String("network", network), zap.String("reward_token", rewardToken.Hex()))
		return
	}

	r.mu.Lock()
	changed := r.currentID != loaded[0].ID
	r.incentives = loaded
	r.currentID = loaded[0].ID
	r.mu.Unlock()

	r.logger.Info("incentives loaded",
		zap.String("network", network),
		zap.Int("count", len(loaded)),
		zap.String("incentive_id", loaded[0].ID),
	)
	if changed {
		r.signal()
	}
}

// SetCurrent selects id as the current incentive without reloading.
func (r *Registry) SetCurrent(id string) {
	r.mu.Lock()
	changed := r.currentID != id
	r.currentID = id
	r.mu.Unlock()
	if changed {
		r.signal()
	}
}

// CurrentID returns the selected incentive id, or "" if none.
func (r *Registry) CurrentID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentID
}

// Current returns the selected incentive when it is part of the loaded collection.
func (r *Registry) Current() (model.Incentive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inc := range r.incentives {
		if model.SameIncentiveID(inc.ID, r.currentID) {
			return cloneIncentive(inc), true
		}
	}
	return model.Incentive{}, false
}

// Incentives returns a copy of the loaded collection.
func (r *Registry) Incentives() []model.Incentive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Incentive, len(r.incentives))
	for i, inc := range r.incentives {
		out[i] = cloneIncentive(inc)
	}
	return out
}

// Changes is signalled whenever the current incentive changes.
func (r *Registry) Changes() <-chan struct{} {
	return r.changes
}

func (r *Registry) signal() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}

func cloneIncentive(inc model.Incentive) model.Incentive {
	out := inc
	if inc.Reward != nil {
		out.Reward = new(big.Int).Set(inc.Reward)
	}
	return out
}
