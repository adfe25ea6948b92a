package cli

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"sar-backtest/internal/backtest"
	"sar-backtest/internal/models"
	"sar-backtest/internal/report"
	"sar-backtest/internal/series"
	"sar-backtest/internal/store"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest over a CSV bar series",
		Long: `Run a Parabolic SAR backtest over a CSV file with columns
datetime, open, high, low, close, volume (timestamps parsed day-first).

Prints summary metrics, the trade log and monthly returns. With --out-dir
the three tables are also written as CSV files; with --save the run is
recorded in the local run history database.`,
		Example: `  sarbt run --input bars.csv
  sarbt run --input bars.csv --accel 0.02 --max-accel 0.2
  sarbt run --input bars.csv --out-dir reports --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			input, _ := cmd.Flags().GetString("input")
			outDir, _ := cmd.Flags().GetString("out-dir")
			save, _ := cmd.Flags().GetBool("save")
			monthFirst, _ := cmd.Flags().GetBool("month-first")

			params := backtest.Params{
				Accel:           app.Config.Backtest.Accel,
				MaxAccel:        app.Config.Backtest.MaxAccel,
				InitialCapital:  app.Config.Backtest.InitialCapital,
				TransactionCost: app.Config.Backtest.TransactionCost,
			}
			if cmd.Flags().Changed("accel") {
				params.Accel, _ = cmd.Flags().GetFloat64("accel")
			}
			if cmd.Flags().Changed("max-accel") {
				params.MaxAccel, _ = cmd.Flags().GetFloat64("max-accel")
			}
			if cmd.Flags().Changed("capital") {
				params.InitialCapital, _ = cmd.Flags().GetFloat64("capital")
			}
			if cmd.Flags().Changed("cost") {
				params.TransactionCost, _ = cmd.Flags().GetFloat64("cost")
			}

			dayFirst := app.Config.Input.DayFirst && !monthFirst

			bars, err := series.LoadCSV(input, dayFirst)
			if err != nil {
				output.Error("Failed to load bars: %v", err)
				return err
			}
			if len(bars) > 0 {
				app.Logger.Debug().
					Int("bars", len(bars)).
					Time("first", bars[0].Timestamp).
					Time("last", bars[len(bars)-1].Timestamp).
					Msg("Bar series loaded")
			}

			result, err := app.Engine.Run(bars, params)
			if err != nil {
				output.Error("Backtest failed: %v", err)
				return err
			}

			if output.IsJSON() {
				if err := output.JSON(jsonResult(result)); err != nil {
					return err
				}
			} else {
				printResult(output, result)
			}

			if outDir != "" {
				if err := report.WriteAll(outDir, result.Summary, result.Trades, result.Monthly); err != nil {
					output.Error("Failed to write reports: %v", err)
					return err
				}
				output.Success("Reports written to %s", outDir)
			}

			if save {
				if err := saveRun(app, input, bars, result); err != nil {
					output.Error("Failed to save run: %v", err)
					return err
				}
				output.Success("Run saved to %s", app.Config.Output.DatabasePath)
			}

			return nil
		},
	}

	cmd.Flags().String("input", "", "input CSV file (required)")
	cmd.Flags().Float64("accel", 0.005, "acceleration factor (0.001-0.1)")
	cmd.Flags().Float64("max-accel", 0.05, "maximum acceleration factor (0.01-0.5)")
	cmd.Flags().Float64("capital", 100000, "initial capital")
	cmd.Flags().Float64("cost", 100, "flat transaction cost per position change")
	cmd.Flags().String("out-dir", "", "directory to write report CSVs")
	cmd.Flags().Bool("save", false, "save the run to the history database")
	cmd.Flags().Bool("month-first", false, "parse ambiguous dates month-first instead of day-first")
	cmd.MarkFlagRequired("input")

	return cmd
}

func saveRun(app *App, source string, bars []models.Bar, result *backtest.Result) error {
	runStore, err := store.NewSQLiteStore(app.Config.Output.DatabasePath)
	if err != nil {
		return err
	}
	defer runStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run := store.NewRun(source, len(bars), result)
	_, err = runStore.SaveRun(ctx, run, result.Trades)
	return err
}

func printResult(output *Output, result *backtest.Result) {
	output.Bold("Summary Metrics")
	summary := NewTable(output, "Final_Equity", "Total_Return_pct", "Sharpe", "Max_Drawdown")
	summary.AddRow(
		fmt.Sprintf("%.2f", result.Summary.FinalEquity),
		output.FormatPercent(result.Summary.TotalReturnPct),
		output.FormatRatio(result.Summary.Sharpe),
		fmt.Sprintf("%.4f", result.Summary.MaxDrawdown),
	)
	summary.Render()
	output.Println()

	output.Bold("Equity Curve")
	output.Println(equityCurveASCII(result.Equity, 72, 12))

	output.Bold("Trade Log")
	if len(result.Trades) == 0 {
		output.Dim("No trades.")
	} else {
		trades := NewTable(output, "entry_time", "entry_price", "exit_time", "exit_price", "direction", "pnl")
		for _, t := range result.Trades {
			direction := t.Direction.String()
			if t.ForcedExit {
				direction += "*"
			}
			trades.AddRow(
				t.EntryTime.Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%.2f", t.EntryPrice),
				t.ExitTime.Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%.2f", t.ExitPrice),
				direction,
				output.FormatPnL(t.PnL),
			)
		}
		trades.Render()
		output.Dim("* still open at the last bar, closed at the last available price")
	}
	output.Println()

	output.Bold("Monthly Returns")
	monthly := NewTable(output, "month", "net_pnl", "equity", "monthly_return_pct")
	for _, m := range result.Monthly {
		monthly.AddRow(
			m.Month.Format("2006-01"),
			output.FormatPnL(m.NetPnL),
			fmt.Sprintf("%.2f", m.Equity),
			output.FormatPercent(m.ReturnPct),
		)
	}
	monthly.Render()
}

// jsonResult converts a result into a JSON-safe payload: NaN metrics become
// null, which encoding/json cannot represent as float64.
func jsonResult(result *backtest.Result) interface{} {
	type jsonTrade struct {
		EntryTime  time.Time `json:"entry_time"`
		EntryPrice float64   `json:"entry_price"`
		ExitTime   time.Time `json:"exit_time"`
		ExitPrice  float64   `json:"exit_price"`
		Direction  string    `json:"direction"`
		PnL        float64   `json:"pnl"`
		ForcedExit bool      `json:"forced_exit"`
	}
	type jsonMonthly struct {
		Month     string   `json:"month"`
		NetPnL    float64  `json:"net_pnl"`
		Equity    float64  `json:"equity"`
		ReturnPct *float64 `json:"monthly_return_pct"`
	}
	type jsonSummary struct {
		FinalEquity    float64  `json:"final_equity"`
		TotalReturnPct float64  `json:"total_return_pct"`
		Sharpe         *float64 `json:"sharpe"`
		MaxDrawdown    float64  `json:"max_drawdown"`
	}

	trades := make([]jsonTrade, len(result.Trades))
	for i, t := range result.Trades {
		trades[i] = jsonTrade{
			EntryTime:  t.EntryTime,
			EntryPrice: t.EntryPrice,
			ExitTime:   t.ExitTime,
			ExitPrice:  t.ExitPrice,
			Direction:  t.Direction.String(),
			PnL:        t.PnL,
			ForcedExit: t.ForcedExit,
		}
	}

	monthly := make([]jsonMonthly, len(result.Monthly))
	for i, m := range result.Monthly {
		monthly[i] = jsonMonthly{
			Month:     m.Month.Format("2006-01"),
			NetPnL:    m.NetPnL,
			Equity:    m.Equity,
			ReturnPct: nanToNil(m.ReturnPct),
		}
	}

	return struct {
		Summary jsonSummary   `json:"summary"`
		Trades  []jsonTrade   `json:"trades"`
		Monthly []jsonMonthly `json:"monthly"`
	}{
		Summary: jsonSummary{
			FinalEquity:    result.Summary.FinalEquity,
			TotalReturnPct: result.Summary.TotalReturnPct,
			Sharpe:         nanToNil(result.Summary.Sharpe),
			MaxDrawdown:    result.Summary.MaxDrawdown,
		},
		Trades:  trades,
		Monthly: monthly,
	}
}

func nanToNil(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
