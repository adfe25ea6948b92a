package backtest

import (
	"math"
	"time"

	"sar-backtest/internal/models"
)

// tradingDaysPerYear annualizes the Sharpe ratio.
const tradingDaysPerYear = 252

// DailyStats buckets the equity path into calendar days, summing net P&L and
// taking the last equity value per day. The daily return is the day's net
// P&L over the previous day's ending equity, falling back to the initial
// capital for the first day.
func DailyStats(points []models.EquityPoint, initialCapital float64) []models.DailyStat {
	var daily []models.DailyStat

	for _, p := range points {
		day := dayOf(p.Timestamp)
		if len(daily) > 0 && daily[len(daily)-1].Date.Equal(day) {
			last := &daily[len(daily)-1]
			last.NetPnL += p.NetPnL
			last.Equity = p.Equity
			continue
		}
		daily = append(daily, models.DailyStat{
			Date:   day,
			NetPnL: p.NetPnL,
			Equity: p.Equity,
		})
	}

	prevEquity := initialCapital
	for i := range daily {
		daily[i].Return = daily[i].NetPnL / prevEquity
		prevEquity = daily[i].Equity
	}

	return daily
}

// Analyze computes the headline performance metrics from the equity path.
// Sharpe is NaN when the daily return sample has fewer than two observations
// or zero variance; that is reported, never raised.
func Analyze(points []models.EquityPoint, initialCapital float64) models.Summary {
	finalEquity := initialCapital
	if len(points) > 0 {
		finalEquity = points[len(points)-1].Equity
	}

	daily := DailyStats(points, initialCapital)

	return models.Summary{
		FinalEquity:    finalEquity,
		TotalReturnPct: (finalEquity/initialCapital - 1) * 100,
		Sharpe:         sharpeRatio(daily),
		MaxDrawdown:    maxDrawdown(daily),
	}
}

// sharpeRatio annualizes mean daily return over its sample standard
// deviation.
func sharpeRatio(daily []models.DailyStat) float64 {
	if len(daily) < 2 {
		return math.NaN()
	}

	returns := make([]float64, len(daily))
	for i, d := range daily {
		returns[i] = d.Return
	}

	m := mean(returns)
	sd := sampleStdDev(returns, m)
	if sd == 0 {
		return math.NaN()
	}

	return m / sd * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the largest peak-to-trough equity decline as a fraction of
// the running peak. The peak never resets.
func maxDrawdown(daily []models.DailyStat) float64 {
	var maxDD float64
	var peak float64

	for i, d := range daily {
		if i == 0 || d.Equity > peak {
			peak = d.Equity
		}
		dd := (peak - d.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// dayOf truncates a timestamp to its calendar day.
func dayOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// sampleStdDev uses the n-1 denominator, matching the daily return series'
// sample nature.
func sampleStdDev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
