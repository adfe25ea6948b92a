package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Backtest.Accel != 0.005 {
		t.Errorf("default accel: got %v", cfg.Backtest.Accel)
	}
	if cfg.Backtest.MaxAccel != 0.05 {
		t.Errorf("default max_accel: got %v", cfg.Backtest.MaxAccel)
	}
	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("default initial_capital: got %v", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.TransactionCost != 100 {
		t.Errorf("default transaction_cost: got %v", cfg.Backtest.TransactionCost)
	}
	if !cfg.Input.DayFirst {
		t.Error("day-first parsing must default to on")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backtest != Default().Backtest {
		t.Errorf("missing file must yield defaults, got %+v", cfg.Backtest)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	toml := `[backtest]
accel = 0.01
max_accel = 0.1
initial_capital = 50000.0

[input]
day_first = false
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backtest.Accel != 0.01 || cfg.Backtest.MaxAccel != 0.1 {
		t.Errorf("file values not applied: %+v", cfg.Backtest)
	}
	if cfg.Backtest.InitialCapital != 50000 {
		t.Errorf("initial_capital: got %v", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.TransactionCost != 100 {
		t.Errorf("unset keys must keep defaults, got %v", cfg.Backtest.TransactionCost)
	}
	if cfg.Input.DayFirst {
		t.Error("day_first = false not applied")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SARBT_ACCEL", "0.02")
	t.Setenv("SARBT_MAX_ACCEL", "0.2")
	t.Setenv("SARBT_CAPITAL", "250000")
	t.Setenv("SARBT_DB_PATH", "/tmp/custom.db")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backtest.Accel != 0.02 || cfg.Backtest.MaxAccel != 0.2 {
		t.Errorf("env overrides not applied: %+v", cfg.Backtest)
	}
	if cfg.Backtest.InitialCapital != 250000 {
		t.Errorf("capital override: got %v", cfg.Backtest.InitialCapital)
	}
	if cfg.Output.DatabasePath != "/tmp/custom.db" {
		t.Errorf("db path override: got %v", cfg.Output.DatabasePath)
	}
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"accel too small", func(c *Config) { c.Backtest.Accel = 0.0001 }},
		{"accel too large", func(c *Config) { c.Backtest.Accel = 0.2 }},
		{"max_accel too small", func(c *Config) { c.Backtest.MaxAccel = 0.001 }},
		{"max_accel too large", func(c *Config) { c.Backtest.MaxAccel = 0.9 }},
		{"max_accel below accel", func(c *Config) { c.Backtest.Accel = 0.05; c.Backtest.MaxAccel = 0.04 }},
		{"zero capital", func(c *Config) { c.Backtest.InitialCapital = 0 }},
		{"negative cost", func(c *Config) { c.Backtest.TransactionCost = -5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
