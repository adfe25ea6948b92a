package backtest

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"sar-backtest/internal/errors"
	"sar-backtest/internal/indicator"
	"sar-backtest/internal/logging"
	"sar-backtest/internal/models"
)

// Engine runs the full backtest pipeline: indicator, simulation, reports.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a new backtest engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logging.WithComponent(logger, "engine"),
	}
}

// Result holds everything a single backtest run produced.
type Result struct {
	Params  Params
	States  []models.IndicatorState
	Signals []models.Signal
	Equity  []models.EquityPoint
	Summary models.Summary
	Trades  []models.Trade
	Daily   []models.DailyStat
	Monthly []models.MonthlyStat
}

// Run executes a backtest over the validated bar sequence. The computation
// is a pure, deterministic function of its inputs; the three reports are
// computed concurrently over the immutable equity path once the simulation
// finishes.
func (e *Engine) Run(bars []models.Bar, params Params) (*Result, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return nil, errors.ErrInsufficientData
	}

	psar := indicator.NewPSAR(params.Accel, params.MaxAccel)
	states, err := psar.Calculate(bars)
	if err != nil {
		return nil, err
	}

	signals := Signals(bars, states)
	points := Simulate(bars, signals, params)

	result := &Result{
		Params:  params,
		States:  states,
		Signals: signals,
		Equity:  points,
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		result.Summary = Analyze(points, params.InitialCapital)
		result.Daily = DailyStats(points, params.InitialCapital)
	}()
	go func() {
		defer wg.Done()
		result.Trades = TradeLog(bars, points)
	}()
	go func() {
		defer wg.Done()
		result.Monthly = MonthlyStats(points)
	}()
	wg.Wait()

	if math.IsNaN(result.Summary.Sharpe) {
		logging.LogDegenerateStats(e.logger, "sharpe", "fewer than 2 daily buckets or zero variance")
	}

	logging.LogRun(e.logger, len(bars), len(result.Trades), result.Summary.FinalEquity, result.Summary.MaxDrawdown)

	return result, nil
}

func validateParams(params Params) error {
	if params.Accel <= 0 || params.Accel >= 1 {
		return errors.NewValidationError("accel", params.Accel, "must be in (0, 1)")
	}
	if params.MaxAccel <= params.Accel || params.MaxAccel >= 1 {
		return errors.NewValidationError("max_accel", params.MaxAccel, "must be in (accel, 1)")
	}
	if params.InitialCapital <= 0 {
		return errors.NewValidationError("initial_capital", params.InitialCapital, "must be positive")
	}
	if params.TransactionCost < 0 {
		return errors.NewValidationError("transaction_cost", params.TransactionCost, "must be non-negative")
	}
	return nil
}
