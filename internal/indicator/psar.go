// Package indicator computes the parabolic stop-and-reverse trend indicator.
package indicator

import (
	"sar-backtest/internal/errors"
	"sar-backtest/internal/models"
)

// PSAR computes the Parabolic SAR as an explicit forward pass. Each bar's
// state depends only on the previous bar's state and the current bar's
// high/low.
type PSAR struct {
	accel    float64
	maxAccel float64
}

// NewPSAR creates a new Parabolic SAR indicator with the given acceleration
// step and cap.
func NewPSAR(accel, maxAccel float64) *PSAR {
	return &PSAR{
		accel:    accel,
		maxAccel: maxAccel,
	}
}

// Calculate produces one IndicatorState per bar. At least two bars are
// required to seed the recurrence.
func (p *PSAR) Calculate(bars []models.Bar) ([]models.IndicatorState, error) {
	if len(bars) < 2 {
		return nil, errors.ErrInsufficientData
	}

	n := len(bars)
	states := make([]models.IndicatorState, n)

	// Seed from the first two bars: trend follows the first close-to-close
	// move, SAR starts at the opposite extreme of bar 0.
	state := models.IndicatorState{Acceleration: p.accel}
	if bars[1].Close > bars[0].Close {
		state.Trend = models.TrendRising
		state.SAR = bars[0].Low
		state.ExtremePoint = bars[0].High
	} else {
		state.Trend = models.TrendFalling
		state.SAR = bars[0].High
		state.ExtremePoint = bars[0].Low
	}
	states[0] = state

	for i := 1; i < n; i++ {
		state = p.step(state, bars, i)
		states[i] = state
	}

	return states, nil
}

// step advances the recurrence by one bar.
func (p *PSAR) step(prev models.IndicatorState, bars []models.Bar, i int) models.IndicatorState {
	next := prev
	next.SAR = prev.SAR + prev.Acceleration*(prev.ExtremePoint-prev.SAR)

	if prev.Trend == models.TrendRising {
		// The stop may not rise above the lows of the prior two bars.
		next.SAR = min(next.SAR, bars[i-1].Low)
		if i >= 2 {
			next.SAR = min(next.SAR, bars[i-2].Low)
		}

		if bars[i].Low < next.SAR {
			// Stop breached: flip to falling, reset stop and acceleration.
			next.Trend = models.TrendFalling
			next.SAR = prev.ExtremePoint
			next.ExtremePoint = bars[i].Low
			next.Acceleration = p.accel
		} else if bars[i].High > prev.ExtremePoint {
			next.ExtremePoint = bars[i].High
			next.Acceleration = min(prev.Acceleration+p.accel, p.maxAccel)
		}
		return next
	}

	// Falling trend: mirror logic on highs.
	next.SAR = max(next.SAR, bars[i-1].High)
	if i >= 2 {
		next.SAR = max(next.SAR, bars[i-2].High)
	}

	if bars[i].High > next.SAR {
		next.Trend = models.TrendRising
		next.SAR = prev.ExtremePoint
		next.ExtremePoint = bars[i].High
		next.Acceleration = p.accel
	} else if bars[i].Low < prev.ExtremePoint {
		next.ExtremePoint = bars[i].Low
		next.Acceleration = min(prev.Acceleration+p.accel, p.maxAccel)
	}
	return next
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
