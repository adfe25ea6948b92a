package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sar-backtest/internal/backtest"
	"sar-backtest/internal/config"
	"sar-backtest/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Engine *backtest.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		Engine: backtest.NewEngine(logger),
	}

	rootCmd := &cobra.Command{
		Use:   "sarbt",
		Short: "Parabolic SAR strategy backtester",
		Long: `sarbt backtests a Parabolic SAR stop-and-reverse strategy against a
historical OHLCV bar series and reports its performance.

It simulates a single-position account bar by bar with one-bar execution lag
and flat transaction costs, then reports summary metrics, a trade log and
monthly returns.

Use 'sarbt run --input bars.csv' to run a backtest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("sarbt v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Backtest Parameters")
	output.Printf("  Acceleration:     %g\n", cfg.Backtest.Accel)
	output.Printf("  Max Acceleration: %g\n", cfg.Backtest.MaxAccel)
	output.Printf("  Initial Capital:  %.2f\n", cfg.Backtest.InitialCapital)
	output.Printf("  Transaction Cost: %.2f\n", cfg.Backtest.TransactionCost)
	output.Println()

	output.Bold("Input")
	output.Printf("  Day-first dates:  %v\n", cfg.Input.DayFirst)
	output.Println()

	output.Bold("Output")
	output.Printf("  Report Dir:       %s\n", cfg.Output.Dir)
	output.Printf("  Database:         %s\n", cfg.Output.DatabasePath)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	output.Printf("  Console:          %v\n", cfg.Logging.Console)
	output.Printf("  File:             %v\n", cfg.Logging.File)
}
