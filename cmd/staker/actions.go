package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"liquidityStaker/internal/txn"
	"liquidityStaker/internal/wallet"
)

type actionDef struct {
	use   string
	short string
	label string
	run   func(o *txn.Orchestrator, ctx context.Context, tokenID uint64, next func())
}

var actionDefs = []actionDef{
	{"approve", "Allow the staking contract to transfer a position", txn.LabelApproved, (*txn.Orchestrator).Approve},
	{"transfer", "Move a position into the staking contract", txn.LabelTransferred, (*txn.Orchestrator).Transfer},
	{"stake", "Stake a deposited position in the selected incentive", txn.LabelStaked, (*txn.Orchestrator).Stake},
	{"unstake", "Unstake a position from the selected incentive", txn.LabelUnstaked, (*txn.Orchestrator).Unstake},
	{"withdraw", "Withdraw a position from the staking contract", txn.LabelWithdrew, (*txn.Orchestrator).Withdraw},
}

func newActionCommand(action actionDef) *cobra.Command {
	return &cobra.Command{
		Use:   action.use + " <token-id>",
		Short: action.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token id %q: %w", args[0], err)
			}
			return runAction(cmd, action.label, func(o *txn.Orchestrator, ctx context.Context, next func()) {
				action.run(o, ctx, tokenID, next)
			})
		},
	}
}

func runClaim(cmd *cobra.Command, _ []string) error {
	return runAction(cmd, txn.LabelClaimed, func(o *txn.Orchestrator, ctx context.Context, next func()) {
		o.Claim(ctx, 0, next)
	})
}

func runAction(cmd *cobra.Command, label string, invoke func(o *txn.Orchestrator, ctx context.Context, next func())) error {
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
	if !a.session.CanSign() {
		return wallet.ErrReadOnly
	}

	done := false
	invoke(a.orchestrator(), ctx, func() { done = true })
	if !done {
		return fmt.Errorf("%s: not completed", cmd.Name())
	}
	fmt.Fprintln(os.Stdout, label)
	return nil
}
