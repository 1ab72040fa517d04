package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityStaker/internal/chain"
	"liquidityStaker/internal/config"
	"liquidityStaker/internal/contracts"
	"liquidityStaker/internal/incentive"
	"liquidityStaker/internal/model"
	"liquidityStaker/internal/notify"
	"liquidityStaker/internal/positions"
	"liquidityStaker/internal/storage"
	"liquidityStaker/internal/storage/postgres"
	"liquidityStaker/internal/subgraph"
	"liquidityStaker/internal/txn"
	"liquidityStaker/internal/wallet"
)

// app is one wallet session with everything built on top of it.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	session  *wallet.Session
	network  config.NetworkConfig
	manager  *contracts.PositionManager
	staking  *contracts.StakingRewards
	graph    *subgraph.Client
	registry *incentive.Registry
	reward   model.TokenMeta
	tokens   *contracts.TokenMetaCache
	caller   bind.ContractCaller
	pg       *postgres.Store
	sinks    []storage.SnapshotSink

	// idle is set when the chain has no supported deployment. Commands
	// have nothing to do and return without error.
	idle bool
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	a := &app{cfg: cfg, logger: logger, tokens: contracts.NewTokenMetaCache()}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	a.client, err = chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a.caller = a.client.Backend()

	a.session, err = wallet.Open(ctx, a.client, cfg.Networks, wallet.Options{
		Network:    cfg.Network,
		PrivateKey: cfg.PrivateKey,
		Address:    cfg.Address,
		Logger:     logger,
	})
	if errors.Is(err, wallet.ErrUnsupportedNetwork) {
		logger.Warn("network not supported, nothing to do", zap.Error(err))
		a.idle = true
		ok = true
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open wallet session: %w", err)
	}
	a.network = a.session.Network()
	a.reward = model.TokenMeta{Address: a.network.RewardToken, Decimals: 18}

	if err := a.openSinks(ctx); err != nil {
		return nil, err
	}

	if !a.network.Enabled() {
		logger.Warn("network is not fully configured, nothing to do", zap.String("network", a.network.Name))
		ok = true
		return a, nil
	}

	if a.manager, err = contracts.NewPositionManager(a.network.NFTManagerAddress(), a.client.Backend()); err != nil {
		return nil, fmt.Errorf("bind position manager: %w", err)
	}
	if a.staking, err = contracts.NewStakingRewards(a.network.StakingAddress(), a.client.Backend()); err != nil {
		return nil, fmt.Errorf("bind staking rewards: %w", err)
	}

	graphOpts := subgraph.Options{
		RatePerSec:   cfg.SubgraphRate,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	}
	a.graph = subgraph.NewClient(a.network.Subgraph, graphOpts)
	a.registry = incentive.NewRegistry(func(endpoint string) incentive.Source {
		if endpoint == a.graph.Endpoint() {
			return a.graph
		}
		return subgraph.NewClient(endpoint, graphOpts)
	}, logger)

	a.registry.Reload(ctx, a.network.Name, a.network.RewardTokenAddress(), a.network.Subgraph)
	if cfg.Incentive != "" {
		a.registry.SetCurrent(cfg.Incentive)
	}
	if a.pg != nil {
		if err := a.pg.UpsertIncentives(ctx, a.network.ChainID, a.registry.Incentives()); err != nil {
			logger.Warn("persist incentives failed", zap.Error(err))
		}
	}

	a.reward = a.tokenMeta(ctx, a.network.RewardTokenAddress())

	ok = true
	return a, nil
}

// tokenMeta resolves display metadata for token through the cache. A failed
// lookup falls back to 18 decimals and no symbol.
func (a *app) tokenMeta(ctx context.Context, token common.Address) model.TokenMeta {
	if a.tokens != nil && a.caller != nil {
		meta, err := a.tokens.Lookup(ctx, a.caller, token, a.logger)
		if err == nil {
			return meta
		}
		a.logger.Debug("token metadata unavailable", zap.String("token", token.Hex()), zap.Error(err))
	}
	return model.TokenMeta{Address: token.Hex(), Decimals: 18}
}

// currentRewardMeta is the metadata of the selected incentive's reward token.
func (a *app) currentRewardMeta(ctx context.Context) model.TokenMeta {
	if a.registry != nil {
		if inc, ok := a.registry.Current(); ok {
			return a.tokenMeta(ctx, inc.Key.RewardToken)
		}
	}
	return a.reward
}

func (a *app) openSinks(ctx context.Context) error {
	if a.cfg.SnapshotOut != "" {
		a.sinks = append(a.sinks, storage.NewJsonlStorage(a.cfg.SnapshotOut))
	}
	if a.cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, a.cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.pg = store
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		a.sinks = append(a.sinks, store)
		a.logger.Info("postgres sink enabled", zap.String("pg_dsn", redactDSN(a.cfg.PGDSN)))
	}
	return nil
}

func (a *app) close() {
	if a.pg != nil {
		a.pg.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// synchronizer builds a position synchronizer for the session. Handles that
// are unavailable stay nil so the synchronizer treats them as missing.
func (a *app) synchronizer(ctx context.Context) *positions.Synchronizer {
	session := positions.Session{
		Owner:   a.session.Address(),
		Network: a.network,
	}
	if a.graph != nil {
		session.Subgraph = a.graph
	}
	if a.manager != nil {
		session.Manager = a.manager
	}
	if a.staking != nil {
		session.Staking = a.staking
		if a.client.SupportsSubscriptions() {
			session.Events = positions.StakingEvents(a.staking)
		}
	}

	var selector positions.IncentiveSelector
	if a.registry != nil {
		selector = a.registry
	}

	s := positions.New(session, selector, positions.Options{
		PollInterval: a.cfg.PollInterval,
		Logger:       a.logger,
	})
	if len(a.sinks) > 0 {
		s.OnPublish(storage.Observer(ctx, a.logger, a.sinks...))
	}
	return s
}

func (a *app) orchestrator() *txn.Orchestrator {
	deps := txn.Deps{
		Signer:  a.session,
		Tracker: notify.NewTracker(notify.NewConsole(os.Stdout, a.logger), a.client, a.network.TxURL, a.logger),
	}
	if a.manager != nil {
		deps.Manager = a.manager
	}
	if a.staking != nil {
		deps.Staking = a.staking
	}
	if a.registry != nil {
		deps.Incentives = a.registry
	}
	return txn.New(deps, a.logger)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
