package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityStaker/internal/contracts"
	"liquidityStaker/internal/model"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.idle {
		<-ctx.Done()
		return nil
	}

	syncer := a.synchronizer(ctx)
	defer syncer.Close()
	syncer.OnPublish(func(snap model.Snapshot) {
		renderPositions(os.Stdout, snap, a.currentRewardMeta(ctx), nil)
	})

	head, err := a.client.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("read head block: %w", err)
	}

	a.logger.Info("watch start",
		zap.String("network", a.network.Name),
		zap.Uint64("head_block", head),
		zap.Stringer("chain_id", a.session.ChainID()),
		zap.String("address", a.session.Address().Hex()),
		zap.Bool("connected", a.session.Connected()),
		zap.Duration("poll_interval", a.cfg.PollInterval),
		zap.Bool("subscriptions", a.client.SupportsSubscriptions()),
	)

	err = syncer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runPositions(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.idle {
		return nil
	}
	if !a.session.Connected() {
		a.logger.Warn("positions unavailable: no account, pass --address or --private-key")
		return nil
	}

	syncer := a.synchronizer(ctx)
	defer syncer.Close()

	var published *model.Snapshot
	syncer.OnPublish(func(snap model.Snapshot) {
		published = &snap
	})
	syncer.Reconcile(ctx)

	if published == nil {
		if _, ok := syncer.Ready(); !ok {
			a.logger.Warn("positions unavailable: network or incentive missing")
		}
		return nil
	}

	var deposits map[uint64]contracts.Deposit
	if withDeposits, _ := cmd.Flags().GetBool("deposits"); withDeposits && a.staking != nil {
		deposits = make(map[uint64]contracts.Deposit, len(published.Positions))
		for _, pos := range published.Positions {
			deposit, err := a.staking.Deposits(ctx, pos.TokenID)
			if err != nil {
				a.logger.Warn("read deposit failed", zap.Uint64("token_id", pos.TokenID), zap.Error(err))
				continue
			}
			deposits[pos.TokenID] = deposit
		}
	}

	renderPositions(os.Stdout, *published, a.currentRewardMeta(ctx), deposits)
	return nil
}

func runIncentives(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.registry == nil {
		return nil
	}
	renderIncentives(os.Stdout, a.registry.Incentives(), a.registry.CurrentID(), func(token common.Address) model.TokenMeta {
		return a.tokenMeta(ctx, token)
	})
	return nil
}
