package positions

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquidityStaker/internal/contracts"
)

// Run drives the synchronizer until ctx is done: a pass runs immediately, on
// every poll tick and whenever the selected incentive changes. While a
// current incentive is selected, a staking event subscription is held and
// its events patch the list. On return the subscription is released and
// in-flight passes have finished.
func (s *Synchronizer) Run(ctx context.Context) error {
	var passes sync.WaitGroup
	defer passes.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	trigger := func() {
		passes.Add(1)
		go func() {
			defer passes.Done()
			s.Reconcile(ctx)
		}()
	}

	events := make(chan contracts.StakeEvent, 64)
	var (
		sub          Releaser
		subErr       <-chan error
		subIncentive string
	)
	release := func() {
		if sub == nil {
			return
		}
		sub.Unsubscribe()
		s.logger.Debug("staking events released", zap.String("incentive_id", subIncentive))
		sub, subErr, subIncentive = nil, nil, ""
	}
	acquire := func() {
		if s.session.Events == nil {
			return
		}
		inc, ok := s.Ready()
		if !ok {
			release()
			return
		}
		if sub != nil && subIncentive == inc.ID {
			return
		}
		release()
		next, err := s.session.Events.Watch(ctx, events)
		if err != nil {
			s.logger.Warn("subscribe staking events failed, polling only", zap.Error(err))
			return
		}
		sub, subErr, subIncentive = next, next.Err(), inc.ID
		s.logger.Debug("staking events acquired", zap.String("incentive_id", subIncentive))
	}
	defer release()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.logger.Info("synchronizer started", zap.Duration("poll_interval", s.pollInterval))
	acquire()
	trigger()

	var changes <-chan struct{}
	if s.incentives != nil {
		changes = s.incentives.Changes()
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("synchronizer stopped")
			return ctx.Err()
		case <-ticker.C:
			acquire()
			trigger()
		case <-changes:
			acquire()
			trigger()
		case err := <-subErr:
			s.logger.Warn("staking event subscription dropped", zap.Error(err))
			release()
		case ev := <-events:
			s.Apply(ctx, ev)
		}
	}
}
