// Package backtest simulates a single-position trading account over a bar
// series and derives performance reports from the resulting equity path.
package backtest

import (
	"sar-backtest/internal/models"
)

// Params holds the simulation parameters.
type Params struct {
	Accel           float64
	MaxAccel        float64
	InitialCapital  float64
	TransactionCost float64
}

// Signals derives the raw directional signal per bar: the sign of
// close minus SAR.
func Signals(bars []models.Bar, states []models.IndicatorState) []models.Signal {
	signals := make([]models.Signal, len(bars))
	for i := range bars {
		switch {
		case bars[i].Close > states[i].SAR:
			signals[i] = models.SignalLong
		case bars[i].Close < states[i].SAR:
			signals[i] = models.SignalShort
		default:
			signals[i] = models.SignalFlat
		}
	}
	return signals
}

// Simulate folds the signal series into the account's equity path. Positions
// lag signals by one bar, so the first bar is always flat and equity at bar 0
// equals the initial capital exactly. A flat transaction cost is charged on
// every bar where the position changes to a non-flat value.
func Simulate(bars []models.Bar, signals []models.Signal, params Params) []models.EquityPoint {
	points := make([]models.EquityPoint, len(bars))
	equity := params.InitialCapital
	prevPosition := models.SignalFlat

	for i := range bars {
		position := models.SignalFlat
		if i > 0 {
			position = signals[i-1]
		}

		var tradeReturn float64
		switch position {
		case models.SignalLong:
			tradeReturn = bars[i].Close/bars[i-1].Close - 1
		case models.SignalShort:
			tradeReturn = bars[i-1].Close/bars[i].Close - 1
		}

		var cost float64
		if position != prevPosition && position != models.SignalFlat {
			cost = params.TransactionCost
		}

		netPnL := tradeReturn*params.InitialCapital - cost
		equity += netPnL

		points[i] = models.EquityPoint{
			Timestamp: bars[i].Timestamp,
			Position:  position,
			NetPnL:    netPnL,
			Equity:    equity,
		}
		prevPosition = position
	}

	return points
}
