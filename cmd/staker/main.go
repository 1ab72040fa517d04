package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityStaker/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "staker",
		Short:        "Liquidity position staking dashboard",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "Ethereum RPC URL (ws:// enables event subscriptions)")
	flags.String("network", "", "expected network name (default: resolved from chain id)")
	flags.String("private-key", "", "hex private key used to sign transactions")
	flags.String("address", "", "watch-only account address")
	flags.String("incentive", "", "incentive id to select instead of the most recent one")
	flags.Duration("poll-interval", config.DefaultPollInterval, "reconciliation interval")
	flags.Float64("subgraph-rate", 5, "maximum subgraph requests per second")
	flags.Int("max-retries", 3, "maximum subgraph retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial subgraph retry backoff")
	flags.String("snapshot-out", "", "optional JSONL file receiving position snapshots")
	flags.String("pg-dsn", "", "optional Postgres DSN receiving incentives and snapshots")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Keep the position list in sync and print it on every change",
		RunE:  runWatch,
	})

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "Run one reconciliation pass and print the positions",
		RunE:  runPositions,
	}
	positionsCmd.Flags().Bool("deposits", false, "also show the staking contract's custody record")
	root.AddCommand(positionsCmd)

	root.AddCommand(&cobra.Command{
		Use:   "incentives",
		Short: "List the incentives of the reward token",
		RunE:  runIncentives,
	})

	for _, action := range actionDefs {
		root.AddCommand(newActionCommand(action))
	}
	root.AddCommand(&cobra.Command{
		Use:   "claim",
		Short: "Claim the full claimable reward balance",
		Args:  cobra.NoArgs,
		RunE:  runClaim,
	})
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
