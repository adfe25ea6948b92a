// Package config provides configuration management for the backtest application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Backtest BacktestConfig `mapstructure:"backtest"`
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BacktestConfig holds the engine parameters.
type BacktestConfig struct {
	Accel           float64 `mapstructure:"accel"`
	MaxAccel        float64 `mapstructure:"max_accel"`
	InitialCapital  float64 `mapstructure:"initial_capital"`
	TransactionCost float64 `mapstructure:"transaction_cost"`
}

// InputConfig holds input parsing settings.
type InputConfig struct {
	// DayFirst controls timestamp parsing: "02-01-2006" before "01-02-2006".
	DayFirst bool `mapstructure:"day_first"`
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Default returns the built-in default configuration, matching the
// documented parameter defaults.
func Default() *Config {
	return &Config{
		Backtest: BacktestConfig{
			Accel:           0.005,
			MaxAccel:        0.05,
			InitialCapital:  100000,
			TransactionCost: 100,
		},
		Input: InputConfig{
			DayFirst: true,
		},
		Output: OutputConfig{
			DatabasePath: filepath.Join(DefaultConfigDir(), "runs.db"),
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    true,
		},
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/sar-backtest"
	}
	return filepath.Join(home, ".config", "sar-backtest")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config file yields the defaults.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("backtest.accel", cfg.Backtest.Accel)
	v.SetDefault("backtest.max_accel", cfg.Backtest.MaxAccel)
	v.SetDefault("backtest.initial_capital", cfg.Backtest.InitialCapital)
	v.SetDefault("backtest.transaction_cost", cfg.Backtest.TransactionCost)
	v.SetDefault("input.day_first", cfg.Input.DayFirst)
	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.database_path", cfg.Output.DatabasePath)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SARBT_ACCEL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.Accel = f
		}
	}
	if v := os.Getenv("SARBT_MAX_ACCEL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.MaxAccel = f
		}
	}
	if v := os.Getenv("SARBT_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.InitialCapital = f
		}
	}
	if v := os.Getenv("SARBT_DB_PATH"); v != "" {
		cfg.Output.DatabasePath = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backtest.Accel < 0.001 || c.Backtest.Accel > 0.1 {
		return fmt.Errorf("accel must be between 0.001 and 0.1, got %g", c.Backtest.Accel)
	}
	if c.Backtest.MaxAccel < 0.01 || c.Backtest.MaxAccel > 0.5 {
		return fmt.Errorf("max_accel must be between 0.01 and 0.5, got %g", c.Backtest.MaxAccel)
	}
	if c.Backtest.MaxAccel <= c.Backtest.Accel {
		return fmt.Errorf("max_accel (%g) must be greater than accel (%g)", c.Backtest.MaxAccel, c.Backtest.Accel)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %g", c.Backtest.InitialCapital)
	}
	if c.Backtest.TransactionCost < 0 {
		return fmt.Errorf("transaction_cost must be non-negative, got %g", c.Backtest.TransactionCost)
	}
	return nil
}
