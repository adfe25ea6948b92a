package backtest

import (
	"math"
	"time"

	"sar-backtest/internal/models"
)

// MonthlyStats buckets the equity path into calendar months, summing net P&L
// and taking the last equity value per month, then computes month-over-month
// percentage change on the bucketed equity. The first month's return is NaN,
// never zero.
func MonthlyStats(points []models.EquityPoint) []models.MonthlyStat {
	var monthly []models.MonthlyStat

	for _, p := range points {
		month := monthOf(p.Timestamp)
		if len(monthly) > 0 && monthly[len(monthly)-1].Month.Equal(month) {
			last := &monthly[len(monthly)-1]
			last.NetPnL += p.NetPnL
			last.Equity = p.Equity
			continue
		}
		monthly = append(monthly, models.MonthlyStat{
			Month:  month,
			NetPnL: p.NetPnL,
			Equity: p.Equity,
		})
	}

	for i := range monthly {
		if i == 0 {
			monthly[i].ReturnPct = math.NaN()
			continue
		}
		monthly[i].ReturnPct = (monthly[i].Equity/monthly[i-1].Equity - 1) * 100
	}

	return monthly
}

// monthOf truncates a timestamp to the first day of its calendar month.
func monthOf(ts time.Time) time.Time {
	y, m, _ := ts.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, ts.Location())
}
