// Package models defines the core data types shared across the application.
package models

import "time"

// Bar represents a single OHLCV bar. Immutable once validated.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Trend is the direction of the indicator's current trend.
type Trend int

const (
	TrendRising  Trend = 1
	TrendFalling Trend = -1
)

func (t Trend) String() string {
	if t == TrendRising {
		return "RISING"
	}
	return "FALLING"
}

// IndicatorState is the per-bar state of the stop-and-reverse indicator.
// SAR and Trend at bar i depend only on bar i-1's state and bar i's high/low.
type IndicatorState struct {
	SAR          float64
	Trend        Trend
	ExtremePoint float64
	Acceleration float64
}

// Signal is the raw directional signal derived from close vs SAR.
type Signal int

const (
	SignalLong  Signal = 1
	SignalShort Signal = -1
	SignalFlat  Signal = 0
)

func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position is the direction actually held during a bar. It equals the
// previous bar's signal to model next-bar execution.
type Position = Signal

// EquityPoint is one bar of the simulated account path.
type EquityPoint struct {
	Timestamp time.Time
	Position  Position
	NetPnL    float64
	Equity    float64
}

// Trade is a completed round trip: a maximal run of bars holding the same
// non-zero position.
type Trade struct {
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Direction  Signal
	PnL        float64
	// ForcedExit marks the trailing trade that was still open at the last
	// bar and closed at the last available price rather than by a reversal.
	ForcedExit bool
}

// DailyStat is a calendar-day rollup of the equity path.
type DailyStat struct {
	Date   time.Time
	NetPnL float64
	Equity float64
	Return float64
}

// MonthlyStat is a calendar-month rollup of the equity path.
// ReturnPct is NaN for the first month.
type MonthlyStat struct {
	Month     time.Time
	NetPnL    float64
	Equity    float64
	ReturnPct float64
}

// Summary holds the headline performance metrics of a backtest.
// Sharpe is NaN when the daily return sample is degenerate.
type Summary struct {
	FinalEquity    float64
	TotalReturnPct float64
	Sharpe         float64
	MaxDrawdown    float64
}
