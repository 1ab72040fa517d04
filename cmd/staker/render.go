package main

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"

	"liquidityStaker/internal/contracts"
	"liquidityStaker/internal/model"
)

func renderPositions(w io.Writer, snap model.Snapshot, reward model.TokenMeta, deposits map[uint64]contracts.Deposit) {
	fmt.Fprintf(w, "\n[%s] %s on %s, incentive %s: %d positions\n",
		snap.TakenAt.Format(time.RFC3339), snap.Owner, snap.Network, shortID(snap.IncentiveID), len(snap.Positions))

	table := tablewriter.NewWriter(w)
	if deposits != nil {
		table.Header("Token ID", "Status", "Reward", "Custody", "Stakes", "Note")
	} else {
		table.Header("Token ID", "Status", "Reward", "Note")
	}

	for _, pos := range snap.Positions {
		status := "unstaked"
		if pos.Staked {
			status = "staked"
		}
		row := []any{
			fmt.Sprintf("%d", pos.TokenID),
			status,
			formatAmount(pos.Reward, reward),
		}
		if deposits != nil {
			custody, stakes := "-", "-"
			if d, ok := deposits[pos.TokenID]; ok {
				custody = d.Owner.Hex()
				stakes = fmt.Sprintf("%d", d.NumberOfStakes)
			}
			row = append(row, custody, stakes)
		}
		row = append(row, pos.Error)
		table.Append(row...)
	}
	table.Render()

	fmt.Fprintf(w, "  claimable: %s\n", formatAmount(snap.Claimable, reward))
}

// renderIncentives prints the incentive table. meta resolves each incentive's
// reward token for display.
func renderIncentives(w io.Writer, incentives []model.Incentive, currentID string, meta func(common.Address) model.TokenMeta) {
	table := tablewriter.NewWriter(w)
	table.Header("", "Incentive", "Pool", "Start", "End", "Reward", "Status")

	for _, inc := range incentives {
		marker := ""
		if model.SameIncentiveID(inc.ID, currentID) {
			marker = "*"
		}
		status := "active"
		if inc.Ended {
			status = "ended"
		}
		table.Append(
			marker,
			shortID(inc.ID),
			inc.Key.Pool.Hex(),
			formatUnix(inc.Key.StartTime),
			formatUnix(inc.Key.EndTime),
			formatAmount(inc.Reward, meta(inc.Key.RewardToken)),
			status,
		)
	}
	table.Render()
}

func formatAmount(amount *big.Int, meta model.TokenMeta) string {
	out := model.FormatUnits(amount, meta.Decimals, 4)
	if meta.Symbol != "" {
		out += " " + meta.Symbol
	}
	return out
}

func formatUnix(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func shortID(id string) string {
	if len(id) <= 14 {
		return id
	}
	return id[:8] + "…" + id[len(id)-4:]
}
