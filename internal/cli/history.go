package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sar-backtest/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved backtest runs",
		Long:  "List backtest runs previously saved with 'sarbt run --save'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")

			runStore, err := store.NewSQLiteStore(app.Config.Output.DatabasePath)
			if err != nil {
				output.Error("Failed to open run history: %v", err)
				return err
			}
			defer runStore.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			runs, err := runStore.ListRuns(ctx, limit)
			if err != nil {
				output.Error("Failed to list runs: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}

			if len(runs) == 0 {
				output.Dim("No saved runs.")
				return nil
			}

			table := NewTable(output, "id", "created", "source", "bars", "accel", "max_accel", "final_equity", "return", "sharpe", "max_dd", "trades")
			for _, run := range runs {
				table.AddRow(
					strconv.FormatInt(run.ID, 10),
					run.CreatedAt.Format("2006-01-02 15:04"),
					run.Source,
					strconv.Itoa(run.Bars),
					fmt.Sprintf("%g", run.Params.Accel),
					fmt.Sprintf("%g", run.Params.MaxAccel),
					fmt.Sprintf("%.2f", run.Summary.FinalEquity),
					output.FormatPercent(run.Summary.TotalReturnPct),
					output.FormatRatio(run.Summary.Sharpe),
					fmt.Sprintf("%.4f", run.Summary.MaxDrawdown),
					strconv.Itoa(run.NumTrades),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum number of runs to list")
	cmd.AddCommand(newHistoryTradesCmd(app))

	return cmd
}

func newHistoryTradesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trades <run-id>",
		Short: "Show the trade log of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				output.Error("Invalid run id %q", args[0])
				return err
			}

			runStore, err := store.NewSQLiteStore(app.Config.Output.DatabasePath)
			if err != nil {
				output.Error("Failed to open run history: %v", err)
				return err
			}
			defer runStore.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			trades, err := runStore.GetTrades(ctx, runID)
			if err != nil {
				output.Error("Failed to load trades: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Dim("No trades for run %d.", runID)
				return nil
			}

			table := NewTable(output, "entry_time", "entry_price", "exit_time", "exit_price", "direction", "pnl")
			for _, t := range trades {
				direction := t.Direction.String()
				if t.ForcedExit {
					direction += "*"
				}
				table.AddRow(
					t.EntryTime.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%.2f", t.EntryPrice),
					t.ExitTime.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%.2f", t.ExitPrice),
					direction,
					output.FormatPnL(t.PnL),
				)
			}
			table.Render()
			return nil
		},
	}
}
